package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// Tracker publishes events for the analytics consumer.
type Tracker struct {
	Producer Publisher
	Log      *logger.Logger
}

func NewTracker(p Publisher, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{Producer: p, Log: log}
}

// Track stamps id and timestamp when missing and queues the event.
func (t *Tracker) Track(ctx context.Context, e *Event) error {
	if e.EventType == "" {
		return ErrMissingType
	}
	if e.ID == "" {
		e.ID = wire.NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = wire.Now()
	}
	if e.EventData == nil {
		e.EventData = map[string]any{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := t.Producer.Publish(ctx, e.PartitionKey(), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(e.EventType)},
	); err != nil {
		t.Log.Error("failed to queue event", "event_type", e.EventType, "event_id", e.ID, "error", err)
		return err
	}
	t.Log.Info("event tracked", "event_type", e.EventType, "event_id", e.ID)
	return nil
}
