package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/ogcard/internal/application"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	session  *application.SessionService
	tracker  *application.RateLimitTracker
	repos    *application.RepositoryService
	uploader *application.AssetUploader
	resolver *application.ResolverService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.SessionService,
	tracker *application.RateLimitTracker,
	repos *application.RepositoryService,
	uploader *application.AssetUploader,
	resolver *application.ResolverService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:  session,
		tracker:  tracker,
		repos:    repos,
		uploader: uploader,
		resolver: resolver,
		logger:   logger,
	}
}

// NewServeMux registers every route and wraps the mux in instrumentation and
// panic recovery. gatherer backs /metrics.
func NewServeMux(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("PUT /api/v1/session/token", h.SetToken)
	mux.HandleFunc("DELETE /api/v1/session", h.SignOut)
	mux.HandleFunc("POST /api/v1/session/verify", h.VerifySession)

	mux.HandleFunc("GET /api/v1/ratelimit", h.ListRateLimits)
	mux.HandleFunc("POST /api/v1/ratelimit/refresh", h.RefreshRateLimits)

	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("POST /api/v1/repos", h.CreateRepo)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}", h.GetRepo)

	mux.HandleFunc("POST /api/v1/uploads", h.Upload)
	mux.HandleFunc("GET /api/v1/uploads", h.ListUploads)

	mux.HandleFunc("GET /api/v1/ens/{name}/resolver", h.GetResolver)
	mux.HandleFunc("GET /api/v1/ens/{name}/record", h.GetRecord)
	mux.HandleFunc("PUT /api/v1/ens/{name}/og", h.SetOGBaseURL)

	mux.Handle("GET /metrics", metrics.Handler(gatherer))

	// Recovery runs inside instrumentation so a recovered 500 is still logged and counted.
	return instrumentMiddleware(logger, recoveryMiddleware(logger, mux))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSession reports whether a GitHub token is held and whose it is.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	identity, ok := h.session.Identity()
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(identity))
}

// SetToken validates and stores a GitHub token.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req SetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.session.SetToken(r.Context(), req.Token)
	if err != nil {
		h.writeServiceError(w, "set token", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(identity))
}

// VerifySession re-checks the held token with GitHub.
func (h *Handler) VerifySession(w http.ResponseWriter, r *http.Request) {
	identity, err := h.session.Verify(r.Context())
	if err != nil {
		h.writeServiceError(w, "verify session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(identity))
}

// SignOut forgets the stored token.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SignOut(r.Context()); err != nil {
		h.writeServiceError(w, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRateLimits returns the cached quota snapshots without calling GitHub.
func (h *Handler) ListRateLimits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toRateLimitResponses(h.tracker.Snapshots()))
}

// RefreshRateLimits fetches quota from GitHub unless the last fetch is still
// within the refresh interval, then returns the snapshots.
func (h *Handler) RefreshRateLimits(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Refresh(r.Context()); err != nil {
		h.writeServiceError(w, "refresh rate limits", err)
		return
	}
	writeJSON(w, http.StatusOK, toRateLimitResponses(h.tracker.Snapshots()))
}

// ListRepos returns the repositories of the authenticated user.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repos.ListRepositories(r.Context())
	if err != nil {
		h.writeServiceError(w, "list repos", err)
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRepo returns a single repository by owner and name.
func (h *Handler) GetRepo(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	name := r.PathValue("repo")

	repo, err := h.repos.GetRepository(r.Context(), owner, name)
	if err != nil {
		h.writeServiceError(w, "get repo", err, "repo", owner+"/"+name)
		return
	}

	writeJSON(w, http.StatusOK, toRepoResponse(*repo))
}

// CreateRepo creates a repository seeded with an og/ folder.
func (h *Handler) CreateRepo(w http.ResponseWriter, r *http.Request) {
	var req CreateRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repo, err := h.repos.CreateRepository(r.Context(), req.Name, req.Private)
	if err != nil {
		h.writeServiceError(w, "create repo", err, "name", req.Name)
		return
	}

	writeJSON(w, http.StatusCreated, toRepoResponse(*repo))
}
