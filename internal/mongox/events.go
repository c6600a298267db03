package mongox

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const EventsCollection = "analytics_events"

type EventStore struct {
	col *mongo.Collection
}

// NewEventStore ensures the lookup indexes exist.
func NewEventStore(ctx context.Context, db *mongo.Database) (*EventStore, error) {
	col := db.Collection(EventsCollection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: create indexes: %w", err)
	}
	return &EventStore{col: col}, nil
}

// Insert stores doc. A document whose _id is already stored is not an
// error; redelivered events land here.
func (s *EventStore) Insert(ctx context.Context, doc any) error {
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("mongo: insert event: %w", err)
	}
	return nil
}

func (s *EventStore) CountByType(ctx context.Context, eventType string) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"event_type": eventType})
}
