package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

type Config struct {
	API       APIConfig
	Export    ExportConfig
	Render    RenderConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Archive   ArchiveConfig
	Trace     TraceConfig
}

type APIConfig struct {
	Addr string
	// PresentationsFile optionally seeds the in-memory presentation store
	// from a JSON file at startup.
	PresentationsFile string
}

type ExportConfig struct {
	OutputDir        string
	MaxActiveExports int
}

type RenderConfig struct {
	ChromePath      string
	ChromeNoSandbox bool
	LaunchTimeout   time.Duration
	CaptureTimeout  time.Duration
	FFmpegPath      string
	EncodeTimeout   time.Duration
}

// RedisConfig with an empty Addr disables every Redis-backed feature (rate
// limiting, pub/sub notifications).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

type WebhookConfig struct {
	Endpoint string
	Secret   string
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func Load() Config {
	defaultSlots := max(1, runtime.NumCPU()/2)

	return Config{
		API: APIConfig{
			Addr:              env("DECKRENDER_API_ADDR", ":8080"),
			PresentationsFile: env("DECKRENDER_PRESENTATIONS_FILE", ""),
		},
		Export: ExportConfig{
			OutputDir:        env("DECKRENDER_EXPORT_DIR", "./.deckrender-exports"),
			MaxActiveExports: envInt("DECKRENDER_MAX_ACTIVE_EXPORTS", defaultSlots),
		},
		Render: RenderConfig{
			ChromePath:      env("DECKRENDER_CHROME_PATH", ""),
			ChromeNoSandbox: envBool("DECKRENDER_CHROME_NO_SANDBOX", true),
			LaunchTimeout:   envDuration("DECKRENDER_CHROME_LAUNCH_TIMEOUT", 30*time.Second),
			CaptureTimeout:  envDuration("DECKRENDER_CAPTURE_TIMEOUT", 30*time.Second),
			FFmpegPath:      env("DECKRENDER_FFMPEG_PATH", "ffmpeg"),
			EncodeTimeout:   envDuration("DECKRENDER_ENCODE_TIMEOUT", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     env("DECKRENDER_REDIS_ADDR", ""),
			Password: env("DECKRENDER_REDIS_PASSWORD", ""),
			DB:       envInt("DECKRENDER_REDIS_DB", 0),
			Channel:  env("DECKRENDER_REDIS_CHANNEL", "deckrender:exports"),
		},
		RateLimit: RateLimitConfig{
			Capacity: envInt("DECKRENDER_RATE_LIMIT_CAPACITY", 20),
			Window:   envDuration("DECKRENDER_RATE_LIMIT_WINDOW", time.Minute),
		},
		Webhook: WebhookConfig{
			Endpoint: env("DECKRENDER_WEBHOOK_ENDPOINT", ""),
			Secret:   env("DECKRENDER_WEBHOOK_SECRET", ""),
		},
		Archive: ArchiveConfig{
			Enabled:   envBool("DECKRENDER_ARCHIVE_ENABLED", false),
			Endpoint:  env("DECKRENDER_MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("DECKRENDER_MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("DECKRENDER_MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("DECKRENDER_MINIO_BUCKET", "deckrender-artifacts"),
			UseSSL:    envBool("DECKRENDER_MINIO_USE_SSL", false),
		},
		Trace: TraceConfig{
			Exporter:     env("DECKRENDER_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("DECKRENDER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("DECKRENDER_OTLP_INSECURE", true),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
