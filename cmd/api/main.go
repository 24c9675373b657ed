package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/dunamismax/deckrender/internal/api"
	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/config"
	"github.com/dunamismax/deckrender/internal/export"
	"github.com/dunamismax/deckrender/internal/notify"
	"github.com/dunamismax/deckrender/internal/ratelimit"
	"github.com/dunamismax/deckrender/internal/render"
	"github.com/dunamismax/deckrender/internal/storage"
	"github.com/dunamismax/deckrender/internal/store"
	"github.com/dunamismax/deckrender/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	traceShutdown, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:  "deckrender",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	artifactMgr, err := artifacts.NewManager(cfg.Export.OutputDir)
	if err != nil {
		logger.Fatalf("artifact directory setup failed: %v", err)
	}

	presentations := store.NewMemoryPresentationStore()
	if cfg.API.PresentationsFile != "" {
		n, err := presentations.LoadFile(cfg.API.PresentationsFile)
		if err != nil {
			logger.Fatalf("load presentations failed: %v", err)
		}
		logger.Printf("loaded %d presentations from %s", n, cfg.API.PresentationsFile)
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	notifiers := notify.Fanout{notify.LogNotifier{Logger: logger}}
	if cfg.Webhook.Endpoint != "" {
		client := notify.NewWebhookClient(notify.WebhookConfig{
			SigningSecret:  cfg.Webhook.Secret,
			Timeout:        10 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     8 * time.Second,
		})
		notifiers = append(notifiers, notify.NewWebhookNotifier(client, cfg.Webhook.Endpoint, logger))
	}
	if redisClient != nil {
		notifiers = append(notifiers, notify.NewRedisNotifier(redisClient, cfg.Redis.Channel, logger))
	}

	var archiver export.Archiver
	if cfg.Archive.Enabled {
		client, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Archive.Endpoint,
			Access:   cfg.Archive.AccessKey,
			Secret:   cfg.Archive.SecretKey,
			Bucket:   cfg.Archive.Bucket,
			UseSSL:   cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Fatalf("archive storage setup failed: %v", err)
		}
		ensureCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := client.EnsureBucket(ensureCtx); err != nil {
			cancel()
			logger.Fatalf("archive bucket setup failed: %v", err)
		}
		cancel()
		archiver = client
		logger.Printf("artifact archival enabled bucket=%s", client.Bucket())
	}

	rasterizer := render.NewChromeRasterizer(render.ChromeConfig{
		ExecPath:       cfg.Render.ChromePath,
		NoSandbox:      cfg.Render.ChromeNoSandbox,
		LaunchTimeout:  cfg.Render.LaunchTimeout,
		CaptureTimeout: cfg.Render.CaptureTimeout,
	})
	encoder := render.NewFFmpegEncoder(render.FFmpegConfig{
		BinaryPath: cfg.Render.FFmpegPath,
		Timeout:    cfg.Render.EncodeTimeout,
	})

	jobs := store.NewMemoryJobStore()
	metrics := export.NewMetrics()
	svc := export.NewService(export.Config{MaxActive: cfg.Export.MaxActiveExports}, export.Deps{
		Jobs:      jobs,
		Artifacts: artifactMgr,
		Notifier:  notifiers,
		Metrics:   metrics,
		Archiver:  archiver,
		Logger:    logger,
		Renderers: []render.Renderer{
			render.NewPDFRenderer(rasterizer, artifactMgr),
			render.NewPPTXRenderer(artifactMgr),
			render.NewHTMLRenderer(artifactMgr),
			render.NewVideoRenderer(rasterizer, encoder, artifactMgr),
		},
	})

	serverOpts := []api.Option{
		api.WithMetricsRegistry(metrics.Registry()),
		api.WithTracer(otel.Tracer("deckrender/api")),
	}
	if redisClient != nil {
		limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "deckrender:ratelimit")
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
		serverOpts = append(serverOpts, api.WithRateLimiter(limiter))
	}

	app := api.NewServer(logger, svc, presentations, serverOpts...)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}

	// Let in-flight exports finish writing their artifacts.
	svc.Wait()

	if err := traceShutdown(ctx); err != nil {
		logger.Printf("trace shutdown failed: %v", err)
	}
}
