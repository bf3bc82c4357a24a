// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// The GitHub token is stored under this service/key pair.
const (
	tokenService = "github"
	tokenKey     = "token"
)

// ClientSource hands out the active repository client and the identity it
// authenticates as.
type ClientSource interface {
	Client() (driven.RepositoryClient, error)
	Identity() (model.Identity, bool)
}

// SessionService owns the GitHub token: it validates, persists and restores it,
// and keeps the ClientProvider in step.
type SessionService struct {
	provider  *ClientProvider
	validator driven.TokenValidator
	store     driven.CredentialStore
	newClient driven.RepositoryClientFactory

	// Serializes token changes so a validation cannot race a sign-out.
	mu sync.Mutex

	listeners []func(login string)
}

// NewSessionService creates a SessionService. store may be backed by an adapter
// without an encryption key; the session then lives in memory only.
func NewSessionService(
	provider *ClientProvider,
	validator driven.TokenValidator,
	store driven.CredentialStore,
	newClient driven.RepositoryClientFactory,
) *SessionService {
	return &SessionService{
		provider:  provider,
		validator: validator,
		store:     store,
		newClient: newClient,
	}
}

// SetToken persists token, validates it with one identity call, and on success
// swaps in a client built from it. A rejected token is deleted again and the
// session is signed out.
func (s *SessionService) SetToken(ctx context.Context, token string) (model.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Identity{}, model.ErrTokenRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, tokenService, tokenKey, token); err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return model.Identity{}, fmt.Errorf("storing token: %w", err)
		}
		slog.Warn("token not persisted, session will not survive a restart", "error", err)
	}

	identity, err := s.validator.ValidateToken(ctx, token)
	if err == nil && !identity.CanWriteContents() {
		err = fmt.Errorf("token scopes %v do not grant repository contents access", identity.Scopes)
	}
	if err != nil {
		slog.Warn("token rejected", "error", err)
		s.forget(ctx)
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	s.replace(s.newClient(token), identity)
	slog.Info("github session established", "login", identity.Login)

	return identity, nil
}

// OnClientChange registers fn to run after the active client is replaced,
// with the new login or "" when signed out. Register before serving requests.
func (s *SessionService) OnClientChange(fn func(login string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// replace swaps the client and tells listeners. Caller holds s.mu.
func (s *SessionService) replace(client driven.RepositoryClient, identity model.Identity) {
	s.provider.Replace(client, identity)
	for _, fn := range s.listeners {
		fn(identity.Login)
	}
}

// IsAuthenticated reports whether a validated token is held.
func (s *SessionService) IsAuthenticated() bool {
	return s.provider.HasClient()
}

// Identity returns the cached identity of the active session.
func (s *SessionService) Identity() (model.Identity, bool) {
	return s.provider.Identity()
}

// Client returns the active repository client or model.ErrAuthenticationRequired.
func (s *SessionService) Client() (driven.RepositoryClient, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, model.ErrAuthenticationRequired
	}
	return client, nil
}

// Verify re-checks the active token against GitHub with the session's own
// client and refreshes the cached identity. A token GitHub no longer accepts
// signs the session out; transport failures leave it in place.
func (s *SessionService) Verify(ctx context.Context) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := s.provider.Get()
	if client == nil {
		return model.Identity{}, model.ErrAuthenticationRequired
	}
	previous, _ := s.provider.Identity()

	identity, err := client.GetAuthenticatedUser(ctx)
	if errors.Is(err, model.ErrAuthenticationRequired) {
		slog.Warn("github token no longer accepted, signing out", "login", previous.Login, "error", err)
		s.forget(ctx)
		return model.Identity{}, err
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("verifying token: %w", err)
	}
	if !identity.CanWriteContents() {
		slog.Warn("github token lost contents scope, signing out", "login", identity.Login, "scopes", identity.Scopes)
		s.forget(ctx)
		return model.Identity{}, fmt.Errorf("%w: token scopes %v do not grant repository contents access",
			model.ErrInvalidToken, identity.Scopes)
	}

	if identity.Login != previous.Login {
		s.replace(client, identity)
	} else {
		s.provider.Replace(client, identity)
	}
	slog.Debug("github session verified", "login", identity.Login)
	return identity, nil
}

// SignOut deletes the persisted token and drops the active client.
func (s *SessionService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replace(nil, model.Identity{})
	if err := s.store.Delete(ctx, tokenService, tokenKey); err != nil {
		return fmt.Errorf("deleting stored token: %w", err)
	}
	slog.Info("github session signed out")
	return nil
}

// Restore re-establishes the session at startup from the stored token, or
// from fallbackToken when nothing is stored. Failures are logged and leave
// the session signed out.
func (s *SessionService) Restore(ctx context.Context, fallbackToken string) {
	token, err := s.store.Get(ctx, tokenService, tokenKey)
	if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("reading stored token failed", "error", err)
	}

	source := "store"
	if token == "" {
		token = strings.TrimSpace(fallbackToken)
		source = "environment"
	}
	if token == "" {
		slog.Info("no github token configured, session signed out")
		return
	}

	identity, err := s.SetToken(ctx, token)
	if err != nil {
		slog.Warn("restoring github session failed", "source", source, "error", err)
		return
	}
	slog.Info("github session restored", "source", source, "login", identity.Login)
}

// forget clears the session after a failed validation. Caller holds s.mu.
func (s *SessionService) forget(ctx context.Context) {
	s.replace(nil, model.Identity{})
	if err := s.store.Delete(ctx, tokenService, tokenKey); err != nil {
		slog.Warn("deleting rejected token failed", "error", err)
	}
}
