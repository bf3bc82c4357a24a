package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// OGCARD_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set OGCARD_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the credential for service/key. Returns
	// ErrEncryptionKeyNotSet if the adapter was constructed without an encryption key.
	Set(ctx context.Context, service, key, plaintext string) error

	// Get retrieves the plaintext credential for service/key.
	// Returns ("", nil) if no credential exists.
	Get(ctx context.Context, service, key string) (string, error)

	// Delete removes the credential for service/key. Deleting a missing credential is not an error.
	Delete(ctx context.Context, service, key string) error
}
