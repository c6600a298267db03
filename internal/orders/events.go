package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Items      []ItemQty `json:"items"`
	TotalCents int64     `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID  string    `json:"order_id"`
	UserID   string    `json:"user_id"`
	Restored []ItemQty `json:"restored"`
}

// NewEnvelope wraps payload for the order topics.
func NewEnvelope(eventType, producer, orderID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       wire.NewID(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    wire.Now(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       raw,
	}, nil
}

func PlacedEvent(producer string, o *Order, items []*Item) (Envelope, error) {
	return NewEnvelope(EventOrderPlaced, producer, o.ID, OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      quantities(items),
		TotalCents: o.TotalCents,
	})
}

func CancelledEvent(producer string, o *Order, items []*Item) (Envelope, error) {
	return NewEnvelope(EventOrderCancelled, producer, o.ID, OrderCancelledPayload{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Restored: quantities(items),
	})
}

func quantities(items []*Item) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	return out
}
