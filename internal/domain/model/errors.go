package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuthenticationRequired means no usable GitHub token is held, or GitHub
	// rejected the one that is.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrTokenRequired is returned when an empty token is submitted.
	ErrTokenRequired = errors.New("token is required")

	// ErrInvalidToken is returned when the identity call made with a new token fails.
	ErrInvalidToken = errors.New("invalid token or insufficient scope, must include write access to repository contents")

	// ErrInvalidFolderPath is returned when owner, repository or folder is missing or malformed.
	ErrInvalidFolderPath = errors.New("invalid folder path")

	// ErrIncompleteAssets is returned when required image slots are empty.
	ErrIncompleteAssets = errors.New("incomplete assets")

	// ErrInvalidAsset is returned when a slot does not hold a base64 image data URL.
	ErrInvalidAsset = errors.New("invalid image asset")

	// ErrInvalidBaseURL is returned when a record update carries a non-HTTP(S) base URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrResolverNotFound is returned when no resolver strategy produced a resolver for a name.
	ErrResolverNotFound = errors.New("resolver not found")

	// ErrSignerNotConfigured is returned by write paths that need a signing key.
	ErrSignerNotConfigured = errors.New("signer key not configured")

	// ErrChainNotConfigured is returned by on-chain paths when no RPC endpoint is set.
	ErrChainNotConfigured = errors.New("ethereum rpc not configured")

	// ErrRecordsAPINotConfigured is returned by off-chain writes when no JustaName client is wired.
	ErrRecordsAPINotConfigured = errors.New("justaname api not configured")
)

// RateLimitExceededError is returned by the pre-flight budget check when a
// category cannot cover the calls an operation needs.
type RateLimitExceededError struct {
	Category  RateLimitCategory
	Remaining int
	Required  int
	ResetAt   time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %d remaining, %d required, resets at %s",
		e.Category, e.Remaining, e.Required, e.ResetAt.UTC().Format(time.RFC3339))
}

// RepositoryVisibilityError is returned when assets target a private repository.
type RepositoryVisibilityError struct {
	FullName string
}

func (e *RepositoryVisibilityError) Error() string {
	return fmt.Sprintf("repository %s is private: the CDN only mirrors public repositories, make it public or create a new public one", e.FullName)
}

// RemoteWriteError wraps a failed GitHub, JustaName or chain write. Writes are
// idempotent, so callers may retry the whole operation.
type RemoteWriteError struct {
	Target string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write to %s failed: %v", e.Target, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
