// Package github implements the RepositoryClient port using the go-github library.
package github

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.RepositoryClient = (*Client)(nil)
	_ driven.TokenValidator   = (*Client)(nil)
)

// Client implements the driven.RepositoryClient port using the go-github library.
type Client struct {
	gh         *gh.Client
	httpClient *http.Client // Unauthenticated base transport, reused by ValidateToken.
	baseURL    *url.URL
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. freshContents (forces revalidation of contents lookups so SHAs are never stale)
//  4. go-github (GitHub REST API client with PAT auth)
//
// An empty token yields an unauthenticated client, which is only useful for ValidateToken.
func NewClient(token string) *Client {
	httpClient := newStackedHTTPClient(nil)

	client := gh.NewClient(httpClient)
	base := client
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		gh:         client,
		httpClient: httpClient,
		baseURL:    base.BaseURL,
	}
}

// newStackedHTTPClient assembles the cache, secondary rate limit and
// freshContents layers over base. A nil base means http.DefaultTransport.
func newStackedHTTPClient(base http.RoundTripper) *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = base
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	rateLimitClient.Transport = &freshContents{next: rateLimitClient.Transport}
	return rateLimitClient
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	client := gh.NewClient(httpClient)
	client.BaseURL = u
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		gh:         client,
		httpClient: httpClient,
		baseURL:    u,
	}, nil
}

// freshContents marks GET /repos/{owner}/{repo}/contents/... requests as
// no-cache. httpcache would otherwise serve a SHA up to max-age old, and a
// write with that SHA fails with 409 after an earlier write in the same minute.
type freshContents struct {
	next http.RoundTripper
}

func (t *freshContents) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet && strings.Contains(req.URL.Path, "/contents/") {
		req = req.Clone(req.Context())
		req.Header.Set("Cache-Control", "no-cache")
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// logRateLimit logs the GitHub API rate limit status after each call and
// publishes the remaining core quota.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 {
		metrics.SetRateRemaining(string(model.RateLimitCore), resp.Rate.Remaining)
	}

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// classifyError maps go-github errors onto the domain taxonomy and records the
// call outcome. Unknown errors are wrapped with the operation name.
func classifyError(operation string, resp *gh.Response, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		metrics.RecordGitHubCall(operation, "rate_limited")
		return fmt.Errorf("%s: %w", operation, &model.RateLimitExceededError{
			Category:  model.RateLimitCore,
			Remaining: rateErr.Rate.Remaining,
			ResetAt:   rateErr.Rate.Reset.Time,
		})
	}

	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		metrics.RecordGitHubCall(operation, "unauthorized")
		return fmt.Errorf("%s: %w: %v", operation, model.ErrAuthenticationRequired, err)
	}

	metrics.RecordGitHubCall(operation, "error")
	return fmt.Errorf("%s: %w", operation, err)
}

// snapshotFromRate converts a go-github Rate to a domain snapshot.
func snapshotFromRate(category model.RateLimitCategory, r gh.Rate, fetchedAt time.Time) model.RateLimitSnapshot {
	return model.RateLimitSnapshot{
		Category:  category,
		Limit:     r.Limit,
		Remaining: r.Remaining,
		Used:      r.Used,
		ResetAt:   r.Reset.Time.UTC(),
		FetchedAt: fetchedAt,
	}
}

// mapRepository converts a go-github Repository to a domain model Repository.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapRepository(r *gh.Repository) model.Repository {
	visibility := r.GetVisibility()
	if visibility == "" {
		visibility = "public"
		if r.GetPrivate() {
			visibility = "private"
		}
	}

	return model.Repository{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		HTMLURL:       r.GetHTMLURL(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		Visibility:    visibility,
		Private:       r.GetPrivate(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
}
