package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/deckrender/internal/domain"
)

const (
	HeaderSignature = "X-Deckrender-Signature"
	HeaderTimestamp = "X-Deckrender-Timestamp"
	HeaderEvent     = "X-Deckrender-Event"
)

type WebhookConfig struct {
	Endpoint       string
	SigningSecret  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// WebhookClient posts HMAC-signed JSON events with bounded retry.
type WebhookClient struct {
	httpClient     *http.Client
	signingSecret  string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewWebhookClient(cfg WebhookConfig) *WebhookClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 1 * time.Second
	}

	maxBackoff := cfg.MaxBackoff
	if maxBackoff < initialBackoff {
		maxBackoff = initialBackoff
	}

	return &WebhookClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		signingSecret:  cfg.SigningSecret,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// Send delivers one signed event, retrying up to the configured attempt cap.
func (c *WebhookClient) Send(ctx context.Context, endpoint, event string, payload any) error {
	return c.send(ctx, endpoint, event, payload, c.maxAttempts)
}

// SendOnce delivers one signed event with a single attempt and no backoff.
func (c *WebhookClient) SendOnce(ctx context.Context, endpoint, event string, payload any) error {
	return c.send(ctx, endpoint, event, payload, 1)
}

func (c *WebhookClient) send(ctx context.Context, endpoint, event string, payload any, maxAttempts int) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	signature := c.sign(timestamp, body)

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderTimestamp, timestamp)
		req.Header.Set(HeaderSignature, signature)
		req.Header.Set(HeaderEvent, event)

		resp, err := c.httpClient.Do(req)
		if err == nil && resp != nil {
			resp.Body.Close()
		}

		if err == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = classifyWebhookError(err, resp)
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = minDuration(backoff*2, c.maxBackoff)
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *WebhookClient) sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.signingSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func classifyWebhookError(err error, resp *http.Response) error {
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("webhook request failed: no response")
	}
	return fmt.Errorf("webhook returned status=%d", resp.StatusCode)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// WebhookNotifier adapts the client to the Notifier interface, pushing every
// job transition to one configured endpoint. Delivery failures are logged,
// never surfaced to the job.
type WebhookNotifier struct {
	client   *WebhookClient
	endpoint string
	timeout  time.Duration
	logger   *log.Logger
}

func NewWebhookNotifier(client *WebhookClient, endpoint string, logger *log.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client:   client,
		endpoint: endpoint,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

func (n *WebhookNotifier) Notify(job domain.ExportJob) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	// Notify runs on the job goroutine, and progress ticks arrive once per
	// slide. A tick is superseded by the next one almost immediately, so it
	// gets a single attempt; only terminal events are worth retry backoff.
	var err error
	if job.Terminal() {
		err = n.client.Send(ctx, n.endpoint, EventForStatus(job.Status), job)
	} else {
		err = n.client.SendOnce(ctx, n.endpoint, EventForStatus(job.Status), job)
	}
	if err != nil && n.logger != nil {
		n.logger.Printf("webhook delivery failed job_id=%s status=%s err=%v", job.ID, job.Status, err)
	}
}
