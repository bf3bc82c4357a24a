package driven

import (
	"context"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// UploadStore defines the driven port for upload history.
type UploadStore interface {
	// Record stores a successful upload. ID is assigned by the adapter when empty.
	Record(ctx context.Context, rec model.UploadRecord) (model.UploadRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.UploadRecord, error)

	// ListByFolder returns the history of one folder path, newest first.
	ListByFolder(ctx context.Context, folder model.FolderPath) ([]model.UploadRecord, error)
}
