package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storelink-shopify-layer/internal/infrastructure/signature"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Webhook headers set by the platform on every delivery.
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
)

// ErrSignatureMismatch is returned when the body digest does not match the
// HMAC header. Handlers map it to 403.
var ErrSignatureMismatch = errors.New("webhook signature mismatch")

// ErrEmptyBody is returned when the delivery carried no payload. Handlers
// map it to 400.
var ErrEmptyBody = errors.New("webhook body is empty")

// MissingHeadersError names the required webhook headers a delivery lacked.
// Handlers map it to 400.
type MissingHeadersError struct {
	Headers []string
}

func (e *MissingHeadersError) Error() string {
	return "missing required webhook headers: " + strings.Join(e.Headers, ", ")
}

// Webhooks verifies inbound webhook deliveries and registers topics with
// the platform.
type Webhooks struct {
	app      goshopify.App
	hostName string
	secret   string
	logger   zerolog.Logger
}

// NewWebhooks creates a webhook verifier/registrar for the app identified
// by apiKey/apiSecret, delivering to hostName.
func NewWebhooks(apiKey, apiSecret, hostName string, logger zerolog.Logger) *Webhooks {
	return &Webhooks{
		app:      goshopify.App{ApiKey: apiKey, ApiSecret: apiSecret},
		hostName: hostName,
		secret:   apiSecret,
		logger:   logger,
	}
}

// VerifyRequest validates a delivery: all three platform headers must be
// present, the body non-empty, and the base64 HMAC over the untouched body
// bytes must match the header. The body must be captured before any JSON
// parsing; signature coverage is byte-exact.
func (w *Webhooks) VerifyRequest(headers http.Header, body []byte) (topic, shop string, err error) {
	hmacHeader := headers.Get(HeaderHmac)
	topic = headers.Get(HeaderTopic)
	shop = headers.Get(HeaderShopDomain)

	var missing []string
	if hmacHeader == "" {
		missing = append(missing, HeaderHmac)
	}
	if topic == "" {
		missing = append(missing, HeaderTopic)
	}
	if shop == "" {
		missing = append(missing, HeaderShopDomain)
	}
	if len(missing) > 0 {
		return "", "", &MissingHeadersError{Headers: missing}
	}

	if len(body) == 0 {
		return "", "", ErrEmptyBody
	}

	if !signature.VerifyBase64(w.secret, body, hmacHeader) {
		return "", "", fmt.Errorf("%w for topic %s", ErrSignatureMismatch, topic)
	}
	return topic, shop, nil
}

// RegisterOptions names a topic and the local path the platform should
// deliver it to for one shop.
type RegisterOptions struct {
	Topic       string
	Path        string
	Shop        string
	AccessToken string
}

// RegisterResult is the per-topic outcome of a registration call. Failures
// are carried in Err rather than raised, so callers can log and continue.
type RegisterResult struct {
	Topic   string
	Success bool
	Err     error
}

// Register asks the platform to start delivering a topic to
// https://{hostName}{path}. Registration failure does not fail the OAuth
// flow that triggered it.
func (w *Webhooks) Register(ctx context.Context, opts RegisterOptions) RegisterResult {
	address := fmt.Sprintf("%s://%s%s", hostScheme, w.hostName, opts.Path)

	client, err := goshopify.NewClient(w.app, opts.Shop, opts.AccessToken)
	if err != nil {
		return RegisterResult{Topic: opts.Topic, Err: fmt.Errorf("failed to create client: %w", err)}
	}

	webhook := goshopify.Webhook{
		Topic:   opts.Topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		return RegisterResult{Topic: opts.Topic, Err: fmt.Errorf("failed to register webhook: %w", err)}
	}

	w.logger.Info().
		Str("topic", opts.Topic).
		Str("shop", opts.Shop).
		Str("address", address).
		Msg("Webhook registered")

	return RegisterResult{Topic: opts.Topic, Success: true}
}
