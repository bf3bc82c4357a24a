package model

import "time"

// RateLimitCategory is a GitHub API quota bucket as reported by GET /rate_limit.
type RateLimitCategory string

const (
	RateLimitCore                RateLimitCategory = "core"
	RateLimitSearch              RateLimitCategory = "search"
	RateLimitGraphQL             RateLimitCategory = "graphql"
	RateLimitIntegrationManifest RateLimitCategory = "integration_manifest"
	RateLimitCodeScanningUpload  RateLimitCategory = "code_scanning_upload"
)

// RateLimitCategories lists the tracked categories in display order.
var RateLimitCategories = []RateLimitCategory{
	RateLimitCore,
	RateLimitSearch,
	RateLimitGraphQL,
	RateLimitIntegrationManifest,
	RateLimitCodeScanningUpload,
}

// RateLimitSnapshot is the quota state of one category at FetchedAt.
type RateLimitSnapshot struct {
	Category  RateLimitCategory
	Limit     int
	Remaining int
	Used      int
	ResetAt   time.Time
	FetchedAt time.Time
}

// IsStale reports whether the reset time has passed, after which the counters
// no longer describe the current window.
func (s RateLimitSnapshot) IsStale(now time.Time) bool {
	return !s.ResetAt.After(now)
}

// Allows reports whether required calls fit in the snapshot's remaining quota.
// A stale snapshot always allows.
func (s RateLimitSnapshot) Allows(required int, now time.Time) bool {
	if s.IsStale(now) {
		return true
	}
	return s.Remaining >= required
}
