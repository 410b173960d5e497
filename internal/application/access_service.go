package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

const defaultGrantTTL = 3600

// AccessService is the facade request handlers use: it resolves the calling
// application user, links them to store sessions, hands out valid access
// tokens, and runs the cascading cleanup when a store uninstalls.
type AccessService struct {
	users    ports.UserResolver
	index    ports.StoreIndex
	sessions ports.SessionStore
	logger   zerolog.Logger
}

// NewAccessService creates the access coordinator.
func NewAccessService(
	users ports.UserResolver,
	index ports.StoreIndex,
	sessions ports.SessionStore,
	logger zerolog.Logger,
) *AccessService {
	return &AccessService{
		users:    users,
		index:    index,
		sessions: sessions,
		logger:   logger,
	}
}

// SaveSessionInfo records that the calling user holds the given platform
// session for a store: membership set first, then the TTL-bounded session
// pointer. Re-authorization replaces the prior pointer.
func (s *AccessService) SaveSessionInfo(ctx context.Context, sessionToken, store, sessionID string, expiresIn int64) error {
	userID, err := s.users.ResolveUserID(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	if err := s.index.AddUser(ctx, store, userID); err != nil {
		return fmt.Errorf("failed to add user %s to store %s: %w", userID, store, err)
	}

	if expiresIn <= 0 {
		expiresIn = defaultGrantTTL
	}
	if err := s.index.RecordSession(ctx, userID, store, sessionID, expiresIn); err != nil {
		return fmt.Errorf("failed to record session for user %s and store %s: %w", userID, store, err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("store", store).
		Str("session_id", sessionID).
		Msg("Store session linked to user")

	return nil
}

// ResolveAccessToken returns a valid, non-expired access token for the
// calling user and store. Returns domain.ErrNotFound when the user is not a
// member, the pointer is gone, or the session no longer authorizes access;
// the branches are logged distinctly.
func (s *AccessService) ResolveAccessToken(ctx context.Context, sessionToken, store string) (string, error) {
	userID, err := s.users.ResolveUserID(ctx, sessionToken)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user: %w", err)
	}

	member, err := s.isMember(ctx, store, userID)
	if err != nil {
		return "", err
	}
	if !member {
		s.logger.Debug().
			Str("user_id", userID).
			Str("store", store).
			Msg("No store membership for user")
		return "", domain.ErrNotFound
	}

	sessionID, err := s.index.GetSession(ctx, userID, store)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug().
			Str("user_id", userID).
			Str("store", store).
			Msg("No session pointer for user and store")
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	session, err := s.sessions.LoadSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		// The pointer may outlive the session record; a dangling pointer
		// means "no valid token", not a fault.
		s.logger.Debug().
			Str("user_id", userID).
			Str("store", store).
			Str("session_id", sessionID).
			Msg("Session pointer is dangling")
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if session.AccessToken == "" || (session.Expires != nil && session.Expires.Before(time.Now())) {
		s.logger.Debug().
			Str("user_id", userID).
			Str("store", store).
			Str("session_id", sessionID).
			Msg("Session has no usable access token")
		return "", domain.ErrNotFound
	}

	return session.AccessToken, nil
}

// ListStores returns every store the calling user is a member of.
func (s *AccessService) ListStores(ctx context.Context, sessionToken string) ([]string, error) {
	userID, err := s.users.ResolveUserID(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.index.ListStores(ctx, userID)
}

// DeleteStore runs the uninstall cascade: session records first (the
// pointers are the only route to them), then the pointers, then the
// membership set. Session deletions are best-effort; every record TTLs out
// regardless, so a partial failure is logged instead of aborting the
// cascade. Only the final membership-set deletion decides the outcome.
func (s *AccessService) DeleteStore(ctx context.Context, store string) error {
	userIDs, err := s.index.ListUsers(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to list users for store %s: %w", store, err)
	}

	if len(userIDs) > 0 {
		sessionIDs, err := s.index.ListSessionsByStore(ctx, userIDs, store)
		if err != nil {
			s.logger.Error().Err(err).
				Str("store", store).
				Msg("Failed to list sessions for store cleanup")
		}

		for _, sessionID := range sessionIDs {
			if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
				s.logger.Error().Err(err).
					Str("store", store).
					Str("session_id", sessionID).
					Msg("Failed to delete session during store cleanup")
			}
		}

		if err := s.index.DeleteSessions(ctx, userIDs, store); err != nil {
			s.logger.Error().Err(err).
				Str("store", store).
				Strs("user_ids", userIDs).
				Msg("Failed to delete session pointers during store cleanup")
		}
	}

	if err := s.index.DeleteStore(ctx, store); err != nil {
		return fmt.Errorf("failed to delete store %s: %w", store, err)
	}

	s.logger.Info().
		Str("store", store).
		Int("users", len(userIDs)).
		Msg("Store removed")

	return nil
}

func (s *AccessService) isMember(ctx context.Context, store, userID string) (bool, error) {
	userIDs, err := s.index.ListUsers(ctx, store)
	if err != nil {
		return false, err
	}
	for _, id := range userIDs {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
