package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Values are encrypted with AES-256-GCM before write and decrypted after read.
type CredentialRepo struct {
	db     *DB
	sealer *sealer // nil when no key was configured.
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes (see DeriveKey),
// or nil to disable storage, in which case reads and writes return
// driven.ErrEncryptionKeyNotSet.
func NewCredentialRepo(db *DB, key []byte) (*CredentialRepo, error) {
	repo := &CredentialRepo{db: db}
	if key == nil {
		return repo, nil
	}

	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	repo.sealer = s
	return repo, nil
}

// Set stores or replaces the credential for service/key.
func (r *CredentialRepo) Set(ctx context.Context, service, key, plaintext string) error {
	if r.sealer == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	encrypted, err := r.sealer.seal(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt credential %s/%s: %w", service, key, err)
	}

	const query = `
		INSERT INTO credentials (service, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (service, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, key, encrypted); err != nil {
		return fmt.Errorf("set credential %s/%s: %w", service, key, err)
	}
	return nil
}

// Get retrieves the plaintext credential for service/key.
// Returns ("", nil) if none is stored.
func (r *CredentialRepo) Get(ctx context.Context, service, key string) (string, error) {
	if r.sealer == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE service = ? AND key = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, service, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", service, key, err)
	}

	plaintext, err := r.sealer.open(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s/%s: %w", service, key, err)
	}
	return plaintext, nil
}

// Delete removes the credential for service/key. Works without a key so a
// stale credential can always be cleared.
func (r *CredentialRepo) Delete(ctx context.Context, service, key string) error {
	const query = `DELETE FROM credentials WHERE service = ? AND key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, key); err != nil {
		return fmt.Errorf("delete credential %s/%s: %w", service, key, err)
	}
	return nil
}
