package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// maxUploadBody bounds an upload request; three data-URL images fit comfortably.
const maxUploadBody = 32 << 20

// Upload commits an asset set to a repository folder.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assets := make(model.AssetSet, len(req.Assets))
	for key, dataURL := range req.Assets {
		slot, ok := model.ParseAssetSlot(key)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown asset slot: "+key)
			return
		}
		assets[slot] = dataURL
	}

	folder := model.FolderPath{Owner: req.Owner, Repo: req.Repo, Folder: req.Folder}

	result, err := h.uploader.UploadAssets(r.Context(), folder, assets)
	if err != nil {
		h.writeServiceError(w, "upload assets", err, "folder", folder.FullName())
		return
	}

	writeJSON(w, http.StatusCreated, toUploadResponse(result))
}

// ListUploads returns upload history. With owner, repo and folder query
// parameters it returns the history of that folder, otherwise the most
// recent uploads up to limit.
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		records []model.UploadRecord
		err     error
	)

	if q.Has("folder") {
		folder := model.FolderPath{Owner: q.Get("owner"), Repo: q.Get("repo"), Folder: q.Get("folder")}
		records, err = h.uploader.FolderHistory(r.Context(), folder)
	} else {
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
		}
		records, err = h.uploader.RecentUploads(r.Context(), limit)
	}
	if err != nil {
		h.writeServiceError(w, "list uploads", err)
		return
	}

	resp := make([]UploadRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toUploadRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}
