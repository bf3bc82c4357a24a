package sqlite

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UploadStore = (*UploadRepo)(nil)

// UploadRepo is the SQLite implementation of the UploadStore port. Record IDs
// are monotonic ULIDs, so ordering by id is ordering by creation.
type UploadRepo struct {
	db *DB

	mu      sync.Mutex
	entropy io.Reader
}

// NewUploadRepo creates a new UploadRepo.
func NewUploadRepo(db *DB) *UploadRepo {
	return &UploadRepo{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *UploadRepo) newID(t time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), r.entropy)
	if err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}
	return id.String(), nil
}

// Record inserts rec, filling in ID and CreatedAt when they are zero.
func (r *UploadRepo) Record(ctx context.Context, rec model.UploadRecord) (model.UploadRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ID == "" {
		id, err := r.newID(rec.CreatedAt)
		if err != nil {
			return model.UploadRecord{}, err
		}
		rec.ID = id
	}

	const query = `
		INSERT INTO uploads (id, owner, repo, folder, base_url, file_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.ID, rec.Folder.Owner, rec.Folder.Repo, rec.Folder.Folder,
		rec.BaseURL, rec.FileCount, formatTime(rec.CreatedAt),
	)
	if err != nil {
		return model.UploadRecord{}, fmt.Errorf("record upload %s: %w", rec.Folder.Dir(), err)
	}

	return rec, nil
}

// ListRecent returns up to limit records, newest first.
func (r *UploadRepo) ListRecent(ctx context.Context, limit int) ([]model.UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, owner, repo, folder, base_url, file_count, created_at
		FROM uploads ORDER BY id DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

// ListByFolder returns the history of one folder path, newest first.
func (r *UploadRepo) ListByFolder(ctx context.Context, folder model.FolderPath) ([]model.UploadRecord, error) {
	const query = `
		SELECT id, owner, repo, folder, base_url, file_count, created_at
		FROM uploads WHERE owner = ? AND repo = ? AND folder = ?
		ORDER BY id DESC`
	return r.query(ctx, query, folder.Owner, folder.Repo, folder.Folder)
}

func (r *UploadRepo) query(ctx context.Context, query string, args ...any) ([]model.UploadRecord, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	records := []model.UploadRecord{}
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}

	return records, nil
}

func scanUpload(s scanner) (model.UploadRecord, error) {
	var (
		rec       model.UploadRecord
		createdAt string
	)
	err := s.Scan(
		&rec.ID, &rec.Folder.Owner, &rec.Folder.Repo, &rec.Folder.Folder,
		&rec.BaseURL, &rec.FileCount, &createdAt,
	)
	if err != nil {
		return model.UploadRecord{}, fmt.Errorf("scan upload: %w", err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.UploadRecord{}, fmt.Errorf("parse created_at for upload %s: %w", rec.ID, err)
	}
	return rec, nil
}
