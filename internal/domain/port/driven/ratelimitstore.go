package driven

import (
	"context"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// RateLimitStore persists the last fetched quota snapshots so a restart does
// not cost an immediate /rate_limit call. Snapshots are owned by the GitHub
// login whose token fetched them.
type RateLimitStore interface {
	// Save replaces the stored snapshot of each given category for login.
	// Snapshots owned by other logins are discarded.
	Save(ctx context.Context, login string, snapshots []model.RateLimitSnapshot) error

	// Load returns the snapshots stored for login ordered by category. Empty
	// when nothing was saved for that login.
	Load(ctx context.Context, login string) ([]model.RateLimitSnapshot, error)
}
