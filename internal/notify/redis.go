package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dunamismax/deckrender/internal/domain"
)

const DefaultChannel = "deckrender:exports"

// RedisNotifier publishes job state changes as JSON on a pub/sub channel so
// network-facing transports (websocket bridges, pollers) can fan them out
// without the pipeline knowing about them.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	logger  *log.Logger
}

func NewRedisNotifier(client redis.UniversalClient, channel string, logger *log.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

func (n *RedisNotifier) Notify(job domain.ExportJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		if n.logger != nil {
			n.logger.Printf("marshal export event failed job_id=%s err=%v", job.ID, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil && n.logger != nil {
		n.logger.Printf("publish export event failed job_id=%s channel=%s err=%v", job.ID, n.channel, err)
	}
}
