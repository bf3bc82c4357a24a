package github

import (
	"context"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// FetchRateLimits queries GET /rate_limit, which does not count against the
// quota, and returns snapshots for the tracked categories that GitHub reported.
func (c *Client) FetchRateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, classifyError("fetching rate limits", resp, err)
	}
	metrics.RecordGitHubCall("rate_limit", "ok")

	now := time.Now().UTC()
	byCategory := map[model.RateLimitCategory]*gh.Rate{
		model.RateLimitCore:                limits.Core,
		model.RateLimitSearch:              limits.Search,
		model.RateLimitGraphQL:             limits.GraphQL,
		model.RateLimitIntegrationManifest: limits.IntegrationManifest,
		model.RateLimitCodeScanningUpload:  limits.CodeScanningUpload,
	}

	snapshots := make([]model.RateLimitSnapshot, 0, len(byCategory))
	for _, category := range model.RateLimitCategories {
		r := byCategory[category]
		if r == nil {
			continue
		}
		snapshots = append(snapshots, snapshotFromRate(category, *r, now))
	}

	return snapshots, nil
}
