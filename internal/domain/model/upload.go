package model

import "time"

// FileResult describes one written file.
type FileResult struct {
	Slot       AssetSlot
	Path       string
	ContentSHA string
	CommitSHA  string
	Created    bool // False when an existing file was overwritten.

	// Quota observed on the write response; zero Category when GitHub sent no headers.
	Rate RateLimitSnapshot
}

// UploadResult is the outcome of uploading an asset set. It is derived, never persisted.
type UploadResult struct {
	Success bool
	BaseURL string
	Files   []FileResult
}

// UploadRecord is the persisted history entry of a successful upload.
type UploadRecord struct {
	ID        string // ULID
	Folder    FolderPath
	BaseURL   string
	FileCount int
	CreatedAt time.Time
}
