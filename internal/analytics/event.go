package analytics

import (
	"errors"
	"time"
)

const TopicEvents = "analytics.events"

var ErrMissingType = errors.New("event type is required")

// Event is one tracked interaction. It is the kafka message body and the
// stored mongo document.
type Event struct {
	ID        string         `json:"id" bson:"_id"`
	EventType string         `json:"event_type" bson:"event_type"`
	EventData map[string]any `json:"event_data" bson:"event_data"`
	UserID    string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty" bson:"session_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// PartitionKey keeps one session's (or user's) events on one partition.
func (e *Event) PartitionKey() []byte {
	switch {
	case e.SessionID != "":
		return []byte(e.SessionID)
	case e.UserID != "":
		return []byte(e.UserID)
	default:
		return []byte(e.ID)
	}
}
