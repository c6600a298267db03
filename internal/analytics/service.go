package analytics

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-ecom-chatbot/internal/kafka"
	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
)

type Store interface {
	Insert(ctx context.Context, doc any) error
}

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Service consumes analytics.events and stores each event once.
type Service struct {
	Store Store
	Dedup Deduper
	Log   *logger.Logger
}

// HandleEvent is installed as the consumer handler. Malformed messages are
// logged and skipped so they do not block the partition.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var e Event
	if err := json.Unmarshal(m.Value, &e); err != nil || e.ID == "" || e.EventType == "" {
		s.Log.Warn("dropping malformed event", "offset", m.Offset, "partition", m.Partition, "error", err)
		return nil
	}

	return s.store(ctx, &e)
}

// HandleOrderEvent records order.placed and order.cancelled envelopes as
// analytics events. The envelope's event id is kept so redelivery dedups.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.EventID == "" {
		s.Log.Warn("dropping malformed order event", "offset", m.Offset, "partition", m.Partition, "error", err)
		return nil
	}
	data, err := kafkax.UnwrapPayload[map[string]any](env.Payload)
	if err != nil {
		s.Log.Warn("dropping order event with bad payload", "event_id", env.EventID, "error", err)
		return nil
	}
	e := Event{
		ID:        env.EventID,
		EventType: env.EventType,
		EventData: data,
		Timestamp: env.OccurredAt,
	}
	if uid, ok := data["user_id"].(string); ok {
		e.UserID = uid
	}
	return s.store(ctx, &e)
}

func (s *Service) store(ctx context.Context, e *Event) error {
	first, err := s.Dedup.FirstSeen(ctx, e.ID)
	if err != nil {
		// redis down: the store's unique _id still keeps this idempotent
		s.Log.Warn("dedup unavailable", "event_id", e.ID, "error", err)
		first = true
	}
	if !first {
		return nil
	}

	if err := s.Store.Insert(ctx, e); err != nil {
		if ferr := s.Dedup.Forget(ctx, e.ID); ferr != nil {
			s.Log.Warn("dedup forget failed", "event_id", e.ID, "error", ferr)
		}
		return err
	}
	metrics.AnalyticsEvent(e.EventType)
	s.Log.Debug("event stored", "event_id", e.ID, "event_type", e.EventType)
	return nil
}
