package repository

import (
	"context"
	"fmt"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoWebhookLog records processed webhook events in a MongoDB collection
// for auditing and manual reconciliation after partial cleanup failures.
type MongoWebhookLog struct {
	collection *mongo.Collection
}

// NewMongoWebhookLog creates a Mongo-backed webhook event log.
func NewMongoWebhookLog(db *mongo.Database) ports.WebhookEventLog {
	return &MongoWebhookLog{
		collection: db.Collection("webhook_events"),
	}
}

func (l *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	if _, err := l.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}
