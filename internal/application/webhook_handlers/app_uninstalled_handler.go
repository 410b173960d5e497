package webhook_handlers

import (
	"context"
	"encoding/json"

	"storelink-shopify-layer/internal/application"
	"storelink-shopify-layer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// AppUninstalledHandler runs the cascading store cleanup when the platform
// reports an app uninstall.
type AppUninstalledHandler struct {
	access  *application.AccessService
	deleted prometheus.Counter
	logger  zerolog.Logger
}

// NewAppUninstalledHandler creates the uninstall cleanup handler. The
// counter tracks completed store removals.
func NewAppUninstalledHandler(access *application.AccessService, deleted prometheus.Counter, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		access:  access,
		deleted: deleted,
		logger:  logger,
	}
}

// CanHandle returns true for the app uninstall topic.
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle deletes the store's index and sessions. The delivery has already
// been signature-verified; a cleanup failure is logged but does not fail
// the delivery, since the remaining state TTL-expires on its own.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	store := event.Shop
	if store == "" {
		store = shopFromPayload(event.Payload)
	}
	if store == "" {
		h.logger.Warn().
			Str("topic", event.Topic).
			Msg("Uninstall webhook carried no shop domain")
		return nil
	}

	h.logger.Info().Str("store", store).Msg("Processing app uninstall")

	if err := h.access.DeleteStore(ctx, store); err != nil {
		h.logger.Error().Err(err).
			Str("store", store).
			Msg("Failed to delete store after uninstall")
		return nil
	}

	h.deleted.Inc()
	return nil
}

func shopFromPayload(payload []byte) string {
	var body struct {
		Domain          string `json:"domain"`
		MyshopifyDomain string `json:"myshopify_domain"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Domain != "" {
		return body.Domain
	}
	return body.MyshopifyDomain
}
