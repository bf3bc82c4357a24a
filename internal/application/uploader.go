package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// callsPerFile is the GitHub cost of one WriteFile: a SHA lookup plus the write.
const callsPerFile = 2

// UploaderConfig holds the AssetUploader settings.
type UploaderConfig struct {
	CDNBaseURL   string
	AllowPartial bool // Upload whatever slots are populated instead of requiring all three.
}

// AssetUploader pushes a card's images into og/<folder> of a public repository
// and reports the CDN base URL they are served from.
type AssetUploader struct {
	session ClientSource
	tracker *RateLimitTracker
	uploads driven.UploadStore
	cfg     UploaderConfig
}

// NewAssetUploader creates an AssetUploader.
func NewAssetUploader(session ClientSource, tracker *RateLimitTracker, uploads driven.UploadStore, cfg UploaderConfig) *AssetUploader {
	return &AssetUploader{
		session: session,
		tracker: tracker,
		uploads: uploads,
		cfg:     cfg,
	}
}

// UploadAssets validates everything it can locally, checks the repository is
// public and the quota suffices, then writes the images one by one. The first
// failed write aborts; files already written stay, and a retry overwrites them.
func (u *AssetUploader) UploadAssets(ctx context.Context, folder model.FolderPath, assets model.AssetSet) (*model.UploadResult, error) {
	result, err := u.upload(ctx, folder, assets)
	if err != nil {
		metrics.RecordUpload(uploadOutcome(err))
		return nil, err
	}
	metrics.RecordUpload("ok")
	return result, nil
}

func (u *AssetUploader) upload(ctx context.Context, folder model.FolderPath, assets model.AssetSet) (*model.UploadResult, error) {
	client, err := u.session.Client()
	if err != nil {
		return nil, err
	}

	if err := folder.Validate(); err != nil {
		return nil, err
	}

	slots, err := u.selectSlots(assets)
	if err != nil {
		return nil, err
	}

	images := make([]model.ImageAsset, 0, len(slots))
	for _, slot := range slots {
		img, err := model.DecodeAsset(slot, assets[slot])
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	repo, err := client.GetRepository(ctx, folder.Owner, folder.Repo)
	if err != nil {
		return nil, fmt.Errorf("checking repository %s: %w", folder.FullName(), err)
	}
	if !repo.IsPublic() {
		return nil, &model.RepositoryVisibilityError{FullName: repo.FullName}
	}

	if err := u.tracker.Refresh(ctx); err != nil {
		slog.Warn("rate limit refresh before upload failed", "error", err)
	}
	if err := u.tracker.CheckBudget(model.RateLimitCore, callsPerFile*len(images)); err != nil {
		return nil, err
	}

	files := make([]model.FileResult, 0, len(images))
	for _, img := range images {
		path := folder.AssetPath(img.Slot)
		message := fmt.Sprintf("Upload %s image for %s", img.Slot, folder.Folder)

		file, err := client.WriteFile(ctx, folder.Owner, folder.Repo, path, img.Content, message)
		if err != nil {
			slog.Error("asset write failed",
				"repo", folder.FullName(),
				"path", path,
				"written", len(files),
				"error", err,
			)
			return nil, &model.RemoteWriteError{Target: folder.FullName() + "/" + path, Err: err}
		}
		file.Slot = img.Slot
		u.tracker.Observe(file.Rate)
		files = append(files, file)
	}

	result := &model.UploadResult{
		Success: true,
		BaseURL: folder.CDNBaseURL(u.cfg.CDNBaseURL),
		Files:   files,
	}

	rec, err := u.uploads.Record(ctx, model.UploadRecord{
		Folder:    folder,
		BaseURL:   result.BaseURL,
		FileCount: len(files),
	})
	if err != nil {
		slog.Warn("recording upload history failed", "folder", folder.Dir(), "error", err)
	} else {
		slog.Info("assets uploaded", "id", rec.ID, "repo", folder.FullName(), "folder", folder.Folder, "files", len(files))
	}

	return result, nil
}

// selectSlots returns the slots to upload, in upload order.
func (u *AssetUploader) selectSlots(assets model.AssetSet) ([]model.AssetSlot, error) {
	if !u.cfg.AllowPartial {
		if missing := assets.Missing(); len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing %s", model.ErrIncompleteAssets, joinSlots(missing))
		}
		return model.AssetSlots, nil
	}

	populated := assets.Populated()
	if len(populated) == 0 {
		return nil, fmt.Errorf("%w: no image provided", model.ErrIncompleteAssets)
	}
	if missing := assets.Missing(); len(missing) > 0 {
		slog.Info("uploading partial asset set", "skipped", joinSlots(missing))
	}
	return populated, nil
}

// RecentUploads returns upload history, newest first.
func (u *AssetUploader) RecentUploads(ctx context.Context, limit int) ([]model.UploadRecord, error) {
	records, err := u.uploads.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	return records, nil
}

// FolderHistory returns the uploads made to one folder, newest first.
func (u *AssetUploader) FolderHistory(ctx context.Context, folder model.FolderPath) ([]model.UploadRecord, error) {
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	records, err := u.uploads.ListByFolder(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("listing uploads for %s: %w", folder.Dir(), err)
	}
	return records, nil
}

func joinSlots(slots []model.AssetSlot) string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// uploadOutcome labels a failed upload for the uploads_total counter.
func uploadOutcome(err error) string {
	var (
		visibility *model.RepositoryVisibilityError
		rate       *model.RateLimitExceededError
		write      *model.RemoteWriteError
	)
	switch {
	case errors.Is(err, model.ErrAuthenticationRequired):
		return "unauthenticated"
	case errors.As(err, &visibility):
		return "private_repository"
	case errors.As(err, &rate):
		return "rate_limited"
	case errors.As(err, &write):
		return "write_failed"
	case errors.Is(err, model.ErrInvalidFolderPath),
		errors.Is(err, model.ErrIncompleteAssets),
		errors.Is(err, model.ErrInvalidAsset):
		return "invalid"
	default:
		return "error"
	}
}
