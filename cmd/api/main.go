package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"storelink-shopify-layer/internal/application"
	"storelink-shopify-layer/internal/application/webhook_handlers"
	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/infrastructure/identity"
	"storelink-shopify-layer/internal/infrastructure/metrics"
	"storelink-shopify-layer/internal/infrastructure/repository"
	shopifyinfra "storelink-shopify-layer/internal/infrastructure/shopify"
	"storelink-shopify-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// identitySessionCookie carries the application session token issued by the
// identity provider.
const identitySessionCookie = "__session"

const (
	callbackPath    = "/auth/callback"
	webhookPath     = "/webhooks/shopify"
	authSuccessPath = "/shopify/auth/success"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	hostName := os.Getenv("HOST")
	if hostName == "" {
		logger.Fatal().Msg("HOST environment variable is required")
	}

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	scopes := os.Getenv("SCOPES")
	if scopes == "" {
		scopes = "read_products"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Webhook audit log is optional; without Mongo the events are only
	// processed, not recorded.
	var webhookLog ports.WebhookEventLog
	if mongoURI := os.Getenv("MONGODB_URI"); mongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "storelink"
		}
		webhookLog = repository.NewMongoWebhookLog(client.Database(dbName))
	}

	sessionStore := repository.NewRedisSessionStore(redisClient)
	storeIndex := repository.NewRedisStoreIndex(redisClient)
	userResolver := identity.NewClerkResolver(os.Getenv("CLERK_API_KEY"), logger)

	oauth := shopifyinfra.NewOAuth(sessionStore, hostName, apiKey, apiSecret, scopes, logger)
	webhooks := shopifyinfra.NewWebhooks(apiKey, apiSecret, hostName, logger)
	accessService := application.NewAccessService(userResolver, storeIndex, sessionStore, logger)

	m := metrics.New()

	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(accessService, m.StoresDeleted, logger))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	r.Get("/auth/shopify", oauthInitHandler(oauth, m, logger))
	r.Get(callbackPath, oauthCallbackHandler(oauth, accessService, webhooks, m, logger))
	r.Post(webhookPath, webhookHandler(webhooks, webhookDispatcher, webhookLog, m, logger))

	r.Get("/stores", listStoresHandler(accessService, logger))
	r.Get("/auth/verify", authVerifyHandler(accessService, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// oauthInitHandler starts the OAuth flow and redirects to the platform's
// authorize URL.
func oauthInitHandler(oauth *shopifyinfra.OAuth, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		authURL, err := oauth.BeginAuth(r.Context(), w, shop, callbackPath)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth flow")
			m.OAuthFailed.WithLabelValues("begin").Inc()
			http.Error(w, "Failed to start OAuth process", http.StatusInternalServerError)
			return
		}

		m.OAuthStarted.Inc()
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the OAuth flow: validates the callback,
// enforces the required scopes, links the store session to the calling
// user, and registers the uninstall webhook.
func oauthCallbackHandler(
	oauth *shopifyinfra.OAuth,
	accessService *application.AccessService,
	webhooks *shopifyinfra.Webhooks,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query, err := domain.ParseAuthQuery(r.URL.Query())
		if err != nil {
			logger.Warn().Err(err).Msg("Malformed OAuth callback")
			m.OAuthFailed.WithLabelValues("parse").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		session, err := oauth.ValidateAuthCallback(ctx, w, r, query)
		if err != nil {
			logger.Error().Err(err).Str("shop", query.Shop).Msg("Failed to complete OAuth process")
			m.OAuthFailed.WithLabelValues("validate").Inc()
			http.Error(w, "Failed to complete OAuth process", http.StatusInternalServerError)
			return
		}

		if missing := grantedScopes(session).Missing(oauth.RequiredScopes()); len(missing) > 0 {
			logger.Warn().
				Str("shop", session.Shop).
				Strs("missing_scopes", missing).
				Msg("Granted session lacks required scopes")
			m.OAuthFailed.WithLabelValues("scopes").Inc()
			http.Error(w, "Missing required scopes: "+strings.Join(missing, ", "), http.StatusForbidden)
			return
		}

		sessionToken := identityToken(r)
		if err := accessService.SaveSessionInfo(ctx, sessionToken, session.Shop, session.ID, session.ExpiresIn()); err != nil {
			logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to save store session info")
			m.OAuthFailed.WithLabelValues("link").Inc()
			http.Error(w, "Failed to complete OAuth process", http.StatusInternalServerError)
			return
		}

		// Registration failure is not fatal: the OAuth flow itself already
		// succeeded.
		result := webhooks.Register(ctx, shopifyinfra.RegisterOptions{
			Topic:       "app/uninstalled",
			Path:        webhookPath,
			Shop:        session.Shop,
			AccessToken: session.AccessToken,
		})
		if !result.Success {
			logger.Error().Err(result.Err).
				Str("shop", session.Shop).
				Str("topic", result.Topic).
				Msg("Failed to register uninstall webhook")
		}

		m.OAuthCompleted.Inc()
		http.Redirect(w, r, authSuccessPath, http.StatusFound)
	}
}

// webhookHandler verifies and dispatches inbound webhook deliveries.
// Verification runs before anything destructive; rejected deliveries have
// no side effects.
func webhookHandler(
	webhooks *shopifyinfra.Webhooks,
	dispatcher *application.WebhookDispatcher,
	webhookLog ports.WebhookEventLog,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook body")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		topic, shop, err := webhooks.VerifyRequest(r.Header, body)
		if err != nil {
			var missingErr *shopifyinfra.MissingHeadersError
			switch {
			case errors.As(err, &missingErr), errors.Is(err, shopifyinfra.ErrEmptyBody):
				logger.Warn().Err(err).Msg("Rejected malformed webhook")
				m.WebhooksReceived.WithLabelValues(topic, "malformed").Inc()
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, shopifyinfra.ErrSignatureMismatch):
				logger.Warn().Str("topic", topic).Msg("Rejected webhook with bad signature")
				m.WebhooksReceived.WithLabelValues(topic, "forged").Inc()
				http.Error(w, "Invalid signature", http.StatusForbidden)
			default:
				logger.Error().Err(err).Msg("Webhook verification failed")
				http.Error(w, "Failed to verify webhook", http.StatusInternalServerError)
			}
			return
		}

		event := &domain.WebhookEvent{
			Topic:    topic,
			Shop:     shop,
			Payload:  body,
			Verified: true,
		}

		if webhookLog != nil {
			if err := webhookLog.LogWebhook(ctx, event); err != nil {
				logger.Error().Err(err).
					Str("topic", topic).
					Str("shop", shop).
					Msg("Failed to log webhook event")
			}
		}

		if err := dispatcher.Dispatch(ctx, event); err != nil {
			logger.Error().Err(err).
				Str("topic", topic).
				Str("shop", shop).
				Msg("Failed to dispatch webhook event")
			m.WebhooksReceived.WithLabelValues(topic, "failed").Inc()
			http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
			return
		}

		m.WebhooksReceived.WithLabelValues(topic, "ok").Inc()
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"received": "true"})
	}
}

// listStoresHandler returns the stores the calling user belongs to.
func listStoresHandler(accessService *application.AccessService, logger zerolog.Logger) http.HandlerFunc {
	type response struct {
		Stores []string `json:"stores"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := identityToken(r)
		if token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(response{Stores: []string{}})
			return
		}

		stores, err := accessService.ListStores(r.Context(), token)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list stores")
			http.Error(w, "Failed to list stores", http.StatusInternalServerError)
			return
		}
		if stores == nil {
			stores = []string{}
		}
		json.NewEncoder(w).Encode(response{Stores: stores})
	}
}

// authVerifyHandler reports whether the calling user holds a usable access
// token for the store named by the shop-domain header.
func authVerifyHandler(accessService *application.AccessService, logger zerolog.Logger) http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := identityToken(r)
		store := r.Header.Get(shopifyinfra.HeaderShopDomain)

		_, err := accessService.ResolveAccessToken(r.Context(), token, store)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error().Err(err).Str("store", store).Msg("Failed to resolve access token")
			}
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(response{Success: false})
			return
		}
		json.NewEncoder(w).Encode(response{Success: true})
	}
}

// grantedScopes reads the scopes the user actually granted: the per-user
// scope for online sessions, the shop-level scope otherwise.
func grantedScopes(session *domain.Session) domain.ScopeSet {
	if session.OnlineAccessInfo != nil && session.OnlineAccessInfo.AssociatedUserScope != "" {
		return domain.NewScopeSet(session.OnlineAccessInfo.AssociatedUserScope)
	}
	return domain.NewScopeSet(session.Scope)
}

func identityToken(r *http.Request) string {
	cookie, err := r.Cookie(identitySessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
