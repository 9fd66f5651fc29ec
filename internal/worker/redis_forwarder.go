package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// Publisher sends a payload on a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisForwarder republishes ticket events as JSON on a pub/sub channel so
// processes outside this one can follow ticket activity.
type RedisForwarder struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

// NewRedisForwarder builds a forwarder.
func NewRedisForwarder(publisher Publisher, channel string, logger *zap.Logger) *RedisForwarder {
	return &RedisForwarder{publisher: publisher, channel: channel, logger: logger}
}

// Start subscribes the forwarder to every event type.
func (f *RedisForwarder) Start(dispatcher events.Dispatcher) {
	if f == nil || dispatcher == nil || f.channel == "" {
		return
	}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, f.forward)
	}
}

func (f *RedisForwarder) forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := f.publisher.Publish(ctx, f.channel, payload); err != nil {
		if errors.Is(err, persistence.ErrRedisDisabled) {
			return nil
		}
		f.logger.Warn("event publish failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
