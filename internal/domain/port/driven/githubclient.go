package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// Sentinel errors returned by RepositoryClient implementations.
var (
	// ErrRepoNotFound indicates the requested repository does not exist or is not visible to the token.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoAlreadyExists indicates a repository with the same name already exists.
	ErrRepoAlreadyExists = errors.New("repository already exists")
)

// RepositoryClient defines the driven port for the GitHub REST calls the
// uploader needs. Implementations return model.ErrAuthenticationRequired
// (wrapped) when GitHub rejects the token.
type RepositoryClient interface {
	// GetAuthenticatedUser returns the identity the client's token belongs to.
	GetAuthenticatedUser(ctx context.Context) (model.Identity, error)

	// ListRepositories returns the caller's repositories, most recently updated first.
	ListRepositories(ctx context.Context) ([]model.Repository, error)

	// GetRepository returns ErrRepoNotFound if the repository does not exist.
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)

	// CreateRepository creates an auto-initialized repository for the
	// authenticated user and seeds an og/ folder. Returns ErrRepoAlreadyExists
	// if the name is taken.
	CreateRepository(ctx context.Context, name string, private bool) (*model.Repository, error)

	// WriteFile creates or updates path with content. The current SHA is looked
	// up first, so repeating a write overwrites instead of conflicting.
	WriteFile(ctx context.Context, owner, repo, path string, content []byte, message string) (model.FileResult, error)

	// FetchRateLimits returns current quota for the tracked categories.
	FetchRateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error)
}

// TokenValidator checks a token before it is accepted into a session.
type TokenValidator interface {
	// ValidateToken performs one identity call with token.
	ValidateToken(ctx context.Context, token string) (model.Identity, error)
}

// RepositoryClientFactory builds a RepositoryClient authenticated with token.
type RepositoryClientFactory func(token string) RepositoryClient
