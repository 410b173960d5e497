package ports

import (
	"context"

	"storelink-shopify-layer/internal/domain"
)

// WebhookEventLog records processed webhook events for auditing. Logging is
// best-effort: a write failure must not block webhook processing.
type WebhookEventLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}
