package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// GetResolver returns the resolver found for an ENS name.
func (h *Handler) GetResolver(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	handle, err := h.resolver.Resolve(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, "resolve", err, "name", name)
		return
	}

	writeJSON(w, http.StatusOK, toResolverResponse(handle))
}

// GetRecord returns the me.yodl record of an ENS name.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	handle, err := h.resolver.ReadRecord(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, "read record", err, "name", name)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(handle))
}

// SetOGBaseURL points og.baseUrl of an ENS name's record at an uploaded folder.
func (h *Handler) SetOGBaseURL(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req SetOGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := model.ParseWriteMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.resolver.UpdateBaseURL(r.Context(), name, req.BaseURL, mode)
	if err != nil {
		h.writeServiceError(w, "update base url", err, "name", name, "mode", mode)
		return
	}

	writeJSON(w, http.StatusOK, toRecordWriteResponse(result))
}
