package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was ready.
const statusClientClosedRequest = 499

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps an application error to a status code. Unmapped
// errors are logged with attrs and reported as 500 without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, attrs ...any) {
	var (
		rateErr *model.RateLimitExceededError
		visErr  *model.RepositoryVisibilityError
		wrErr   *model.RemoteWriteError
	)

	switch {
	case errors.As(err, &rateErr):
		retry := int(math.Ceil(time.Until(rateErr.ResetAt).Seconds()))
		if retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &visErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, driven.ErrRepoAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrTokenRequired),
		errors.Is(err, model.ErrInvalidToken),
		errors.Is(err, model.ErrInvalidFolderPath),
		errors.Is(err, model.ErrIncompleteAssets),
		errors.Is(err, model.ErrInvalidAsset),
		errors.Is(err, model.ErrInvalidBaseURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, driven.ErrRepoNotFound),
		errors.Is(err, model.ErrResolverNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &wrErr):
		h.logger.Warn(op+" failed", append(attrs, "error", err)...)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, model.ErrSignerNotConfigured),
		errors.Is(err, model.ErrChainNotConfigured),
		errors.Is(err, model.ErrRecordsAPINotConfigured),
		errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads this.
		h.logger.Debug(op+" canceled", attrs...)
		writeError(w, statusClientClosedRequest, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timed out", append(attrs, "error", err)...)
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		h.logger.Error(op+" failed", append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SetTokenRequest is the JSON body for the set token endpoint.
type SetTokenRequest struct {
	Token string `json:"token"`
}

// SessionResponse describes the active GitHub session.
type SessionResponse struct {
	Authenticated bool     `json:"authenticated"`
	Login         string   `json:"login,omitempty"`
	Name          string   `json:"name,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
}

// RateLimitResponse is the JSON representation of one quota category.
type RateLimitResponse struct {
	Category  string `json:"category"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	ResetAt   string `json:"reset_at"`
	FetchedAt string `json:"fetched_at"`
}

// RepoResponse is the JSON representation of a GitHub repository.
type RepoResponse struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	HTMLURL       string `json:"html_url"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	Visibility    string `json:"visibility"`
	Private       bool   `json:"private"`
	Public        bool   `json:"public"`
	UpdatedAt     string `json:"updated_at"`
}

// CreateRepoRequest is the JSON body for the create repository endpoint.
type CreateRepoRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

// UploadRequest is the JSON body for the upload endpoint. Assets maps slot
// names (inner, outer, overlay) to base64 image data URLs.
type UploadRequest struct {
	Owner  string            `json:"owner"`
	Repo   string            `json:"repo"`
	Folder string            `json:"folder"`
	Assets map[string]string `json:"assets"`
}

// UploadResponse is the JSON representation of a completed upload.
type UploadResponse struct {
	Success bool                 `json:"success"`
	BaseURL string               `json:"base_url"`
	Files   []FileResultResponse `json:"files"`
}

// FileResultResponse describes one committed file.
type FileResultResponse struct {
	Slot       string `json:"slot"`
	Path       string `json:"path"`
	ContentSHA string `json:"content_sha"`
	CommitSHA  string `json:"commit_sha"`
	Created    bool   `json:"created"`
}

// UploadRecordResponse is one entry of the upload history.
type UploadRecordResponse struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	Folder    string `json:"folder"`
	BaseURL   string `json:"base_url"`
	FileCount int    `json:"file_count"`
	CreatedAt string `json:"created_at"`
}

// ResolverResponse describes the resolver found for an ENS name.
type ResolverResponse struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Source   string `json:"source"`
	Offchain bool   `json:"offchain"`
}

// RecordResponse is a resolver with its me.yodl record.
type RecordResponse struct {
	ResolverResponse
	Record    string `json:"record"`
	HasRecord bool   `json:"has_record"`
	OGBaseURL string `json:"og_base_url,omitempty"`
}

// SetOGRequest is the JSON body for the og.baseUrl update endpoint. Mode is
// auto, onchain or offchain; empty means auto.
type SetOGRequest struct {
	BaseURL string `json:"base_url"`
	Mode    string `json:"mode"`
}

// RecordWriteResponse is the JSON representation of a record update.
type RecordWriteResponse struct {
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	Document string `json:"document"`
	TxHash   string `json:"tx_hash,omitempty"`
}

func toSessionResponse(identity model.Identity) SessionResponse {
	return SessionResponse{
		Authenticated: true,
		Login:         identity.Login,
		Name:          identity.Name,
		Scopes:        identity.Scopes,
	}
}

func toRateLimitResponses(snapshots []model.RateLimitSnapshot) []RateLimitResponse {
	resp := make([]RateLimitResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp = append(resp, RateLimitResponse{
			Category:  string(s.Category),
			Limit:     s.Limit,
			Remaining: s.Remaining,
			Used:      s.Used,
			ResetAt:   s.ResetAt.UTC().Format(time.RFC3339),
			FetchedAt: s.FetchedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

// toRepoResponse converts a domain Repository to its JSON response representation.
func toRepoResponse(repo model.Repository) RepoResponse {
	resp := RepoResponse{
		ID:            repo.ID,
		FullName:      repo.FullName,
		Owner:         repo.Owner,
		Name:          repo.Name,
		HTMLURL:       repo.HTMLURL,
		Description:   repo.Description,
		DefaultBranch: repo.DefaultBranch,
		Visibility:    repo.Visibility,
		Private:       repo.Private,
		Public:        repo.IsPublic(),
	}
	if !repo.UpdatedAt.IsZero() {
		resp.UpdatedAt = repo.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toUploadResponse(result *model.UploadResult) UploadResponse {
	files := make([]FileResultResponse, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, FileResultResponse{
			Slot:       string(f.Slot),
			Path:       f.Path,
			ContentSHA: f.ContentSHA,
			CommitSHA:  f.CommitSHA,
			Created:    f.Created,
		})
	}
	return UploadResponse{Success: result.Success, BaseURL: result.BaseURL, Files: files}
}

func toUploadRecordResponse(rec model.UploadRecord) UploadRecordResponse {
	return UploadRecordResponse{
		ID:        rec.ID,
		Owner:     rec.Folder.Owner,
		Repo:      rec.Folder.Repo,
		Folder:    rec.Folder.Folder,
		BaseURL:   rec.BaseURL,
		FileCount: rec.FileCount,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toResolverResponse(handle *model.ResolverHandle) ResolverResponse {
	return ResolverResponse{
		Name:     handle.Name,
		Address:  handle.Address,
		Source:   string(handle.Source),
		Offchain: handle.Offchain,
	}
}

// toRecordResponse also extracts og.baseUrl when the record is a JSON document.
func toRecordResponse(handle *model.ResolverHandle) RecordResponse {
	resp := RecordResponse{
		ResolverResponse: toResolverResponse(handle),
		Record:           handle.Record,
		HasRecord:        handle.HasRecord,
	}
	if base, ok := model.OGBaseURL(handle.Record); ok {
		resp.OGBaseURL = base
	}
	return resp
}

func toRecordWriteResponse(result *model.RecordWriteResult) RecordWriteResponse {
	return RecordWriteResponse{
		Name:     result.Name,
		Mode:     string(result.Mode),
		Document: result.Document,
		TxHash:   result.TxHash,
	}
}
