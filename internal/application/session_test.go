package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ogcard/internal/application"
	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

type sessionFixture struct {
	session   *application.SessionService
	validator *mockValidator
	store     *memCredentialStore
	built     map[string]*mockRepoClient
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		validator: &mockValidator{identities: map[string]model.Identity{
			"ghp_good":      {Login: "alice", Scopes: []string{"repo"}},
			"ghp_readonly":  {Login: "alice", Scopes: []string{"read:user"}},
			"github_pat_fg": {Login: "bob"},
		}},
		store: newMemCredentialStore(),
		built: map[string]*mockRepoClient{},
	}
	factory := func(token string) driven.RepositoryClient {
		c := &mockRepoClient{}
		f.built[token] = c
		return c
	}
	f.session = application.NewSessionService(application.NewClientProvider(), f.validator, f.store, factory)
	return f
}

func TestSetToken_EmptyIsRejected(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.session.SetToken(context.Background(), "   ")

	assert.ErrorIs(t, err, model.ErrTokenRequired)
	assert.Empty(t, f.validator.calls)
	assert.Empty(t, f.store.values)
}

func TestSetToken_ValidTokenEstablishesSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	identity, err := f.session.SetToken(ctx, "  ghp_good\n")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Login)

	assert.True(t, f.session.IsAuthenticated())
	cached, ok := f.session.Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", cached.Login)

	client, err := f.session.Client()
	require.NoError(t, err)
	assert.Same(t, f.built["ghp_good"], client)

	stored, _ := f.store.Get(ctx, "github", "token")
	assert.Equal(t, "ghp_good", stored)
}

func TestSetToken_FineGrainedTokenWithoutScopesIsAccepted(t *testing.T) {
	f := newSessionFixture(t)

	identity, err := f.session.SetToken(context.Background(), "github_pat_fg")

	require.NoError(t, err)
	assert.Equal(t, "bob", identity.Login)
	assert.True(t, f.session.IsAuthenticated())
}

func TestSetToken_InvalidTokenClearsSession(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"rejected by github", "ghp_bad"},
		{"missing contents scope", "ghp_readonly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			ctx := context.Background()

			_, err := f.session.SetToken(ctx, "ghp_good")
			require.NoError(t, err)

			_, err = f.session.SetToken(ctx, tt.token)
			require.ErrorIs(t, err, model.ErrInvalidToken)
			assert.Contains(t, err.Error(), "must include write access to repository contents")

			assert.False(t, f.session.IsAuthenticated())
			_, err = f.session.Client()
			assert.ErrorIs(t, err, model.ErrAuthenticationRequired)

			stored, _ := f.store.Get(ctx, "github", "token")
			assert.Empty(t, stored, "rejected token must not stay persisted")
		})
	}
}

func TestSetToken_WithoutEncryptionKeyKeepsSessionInMemory(t *testing.T) {
	f := newSessionFixture(t)
	f.store.keyless = true

	_, err := f.session.SetToken(context.Background(), "ghp_good")

	require.NoError(t, err)
	assert.True(t, f.session.IsAuthenticated())
}

func TestSignOut(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.session.SetToken(ctx, "ghp_good")
	require.NoError(t, err)

	require.NoError(t, f.session.SignOut(ctx))

	assert.False(t, f.session.IsAuthenticated())
	_, ok := f.session.Identity()
	assert.False(t, ok)
	stored, _ := f.store.Get(ctx, "github", "token")
	assert.Empty(t, stored)
}

func TestRestore(t *testing.T) {
	t.Run("stored token wins over fallback", func(t *testing.T) {
		f := newSessionFixture(t)
		require.NoError(t, f.store.Set(context.Background(), "github", "token", "ghp_good"))

		f.session.Restore(context.Background(), "github_pat_fg")

		id, ok := f.session.Identity()
		require.True(t, ok)
		assert.Equal(t, "alice", id.Login)
		assert.Equal(t, []string{"ghp_good"}, f.validator.calls)
	})

	t.Run("fallback used when nothing stored", func(t *testing.T) {
		f := newSessionFixture(t)

		f.session.Restore(context.Background(), "github_pat_fg")

		id, ok := f.session.Identity()
		require.True(t, ok)
		assert.Equal(t, "bob", id.Login)
	})

	t.Run("invalid stored token leaves session signed out", func(t *testing.T) {
		f := newSessionFixture(t)
		require.NoError(t, f.store.Set(context.Background(), "github", "token", "ghp_revoked"))

		f.session.Restore(context.Background(), "")

		assert.False(t, f.session.IsAuthenticated())
	})

	t.Run("nothing configured", func(t *testing.T) {
		f := newSessionFixture(t)

		f.session.Restore(context.Background(), "")

		assert.False(t, f.session.IsAuthenticated())
		assert.Empty(t, f.validator.calls)
	})
}

func TestVerify(t *testing.T) {
	t.Run("refreshes the cached identity", func(t *testing.T) {
		f := newSessionFixture(t)
		ctx := context.Background()
		_, err := f.session.SetToken(ctx, "ghp_good")
		require.NoError(t, err)

		var notified []string
		f.session.OnClientChange(func(login string) { notified = append(notified, login) })
		f.built["ghp_good"].user = model.Identity{Login: "alice", Name: "Alice Liddell", Scopes: []string{"repo"}}

		identity, err := f.session.Verify(ctx)

		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", identity.Name)
		cached, _ := f.session.Identity()
		assert.Equal(t, "Alice Liddell", cached.Name)
		assert.Empty(t, notified, "same login keeps the quota cache")
		assert.Equal(t, 1, f.built["ghp_good"].userCalls)
	})

	t.Run("revoked token signs out", func(t *testing.T) {
		f := newSessionFixture(t)
		ctx := context.Background()
		_, err := f.session.SetToken(ctx, "ghp_good")
		require.NoError(t, err)

		var notified []string
		f.session.OnClientChange(func(login string) { notified = append(notified, login) })
		f.built["ghp_good"].userErr = fmt.Errorf("get_user: %w: 401 Bad credentials", model.ErrAuthenticationRequired)

		_, err = f.session.Verify(ctx)

		require.ErrorIs(t, err, model.ErrAuthenticationRequired)
		assert.False(t, f.session.IsAuthenticated())
		assert.Equal(t, []string{""}, notified)
		stored, _ := f.store.Get(ctx, "github", "token")
		assert.Empty(t, stored)
	})

	t.Run("lost contents scope signs out", func(t *testing.T) {
		f := newSessionFixture(t)
		ctx := context.Background()
		_, err := f.session.SetToken(ctx, "ghp_good")
		require.NoError(t, err)
		f.built["ghp_good"].user = model.Identity{Login: "alice", Scopes: []string{"read:user"}}

		_, err = f.session.Verify(ctx)

		require.ErrorIs(t, err, model.ErrInvalidToken)
		assert.False(t, f.session.IsAuthenticated())
	})

	t.Run("transport failure keeps the session", func(t *testing.T) {
		f := newSessionFixture(t)
		ctx := context.Background()
		_, err := f.session.SetToken(ctx, "ghp_good")
		require.NoError(t, err)
		f.built["ghp_good"].userErr = errors.New("connection reset")

		_, err = f.session.Verify(ctx)

		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrAuthenticationRequired)
		assert.True(t, f.session.IsAuthenticated())
	})

	t.Run("signed out", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.session.Verify(context.Background())

		assert.ErrorIs(t, err, model.ErrAuthenticationRequired)
	})
}
