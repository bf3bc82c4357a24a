package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// TrackerOption configures a RateLimitTracker.
type TrackerOption func(*RateLimitTracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *RateLimitTracker) { t.now = now }
}

// RateLimitTracker caches GitHub quota per category and gates operations on it.
// The cache belongs to one GitHub login; a different login sees an empty cache.
type RateLimitTracker struct {
	session  ClientSource
	store    driven.RateLimitStore
	interval time.Duration
	now      func() time.Time

	refreshMu sync.Mutex // One /rate_limit fetch at a time.

	mu          sync.RWMutex
	snapshots   map[model.RateLimitCategory]model.RateLimitSnapshot
	lastRefresh time.Time
	owner       string
	generation  uint64 // Bumped by Reset so an in-flight fetch for the old owner is discarded.
}

// NewRateLimitTracker creates a tracker that refreshes at most once per interval.
func NewRateLimitTracker(session ClientSource, store driven.RateLimitStore, interval time.Duration, opts ...TrackerOption) *RateLimitTracker {
	t := &RateLimitTracker{
		session:   session,
		store:     store,
		interval:  interval,
		now:       time.Now,
		snapshots: make(map[model.RateLimitCategory]model.RateLimitSnapshot),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load restores the snapshots persisted for the signed-in login. The newest
// FetchedAt counts as the last refresh, so a quick restart does not refetch.
func (t *RateLimitTracker) Load(ctx context.Context) error {
	identity, ok := t.session.Identity()
	if !ok {
		return nil
	}

	stored, err := t.store.Load(ctx, identity.Login)
	if err != nil {
		return fmt.Errorf("loading rate limits: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(identity.Login)
	for _, s := range stored {
		t.snapshots[s.Category] = s
		if s.FetchedAt.After(t.lastRefresh) {
			t.lastRefresh = s.FetchedAt
		}
		metrics.SetRateRemaining(string(s.Category), s.Remaining)
	}
	slog.Debug("rate limits loaded", "login", identity.Login, "categories", len(stored))
	return nil
}

// Reset drops the cache and hands it to login. The session calls it whenever
// the active client changes; an empty login means signed out.
func (t *RateLimitTracker) Reset(login string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(login)
	slog.Debug("rate limit cache reset", "login", login)
}

func (t *RateLimitTracker) resetLocked(login string) {
	t.snapshots = make(map[model.RateLimitCategory]model.RateLimitSnapshot)
	t.lastRefresh = time.Time{}
	t.owner = login
	t.generation++
}

// Refresh fetches GET /rate_limit unless the cache is younger than the interval.
func (t *RateLimitTracker) Refresh(ctx context.Context) error {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	client, err := t.session.Client()
	if err != nil {
		return err
	}
	identity, _ := t.session.Identity()

	now := t.now()
	t.mu.Lock()
	if t.owner != identity.Login {
		t.resetLocked(identity.Login)
	}
	fresh := len(t.snapshots) > 0 && now.Sub(t.lastRefresh) < t.interval
	generation := t.generation
	t.mu.Unlock()
	if fresh {
		return nil
	}

	snapshots, err := client.FetchRateLimits(ctx)
	if err != nil {
		return fmt.Errorf("refreshing rate limits: %w", err)
	}

	t.mu.Lock()
	if generation != t.generation {
		t.mu.Unlock()
		slog.Debug("discarding rate limits fetched for a replaced session", "login", identity.Login)
		return nil
	}
	for _, s := range snapshots {
		t.snapshots[s.Category] = s
		metrics.SetRateRemaining(string(s.Category), s.Remaining)
	}
	t.lastRefresh = now
	t.mu.Unlock()

	if err := t.store.Save(ctx, identity.Login, snapshots); err != nil {
		slog.Warn("persisting rate limits failed", "error", err)
	}

	slog.Debug("rate limits refreshed", "login", identity.Login, "categories", len(snapshots))
	return nil
}

// CheckBudget fails with *model.RateLimitExceededError when category cannot
// cover required calls before its reset. Unknown categories pass, as does a
// cache owned by a login other than the signed-in one.
func (t *RateLimitTracker) CheckBudget(category model.RateLimitCategory, required int) error {
	identity, _ := t.session.Identity()

	t.mu.RLock()
	snap, ok := t.snapshots[category]
	if t.owner != identity.Login {
		ok = false
	}
	t.mu.RUnlock()

	if !ok || snap.Allows(required, t.now()) {
		return nil
	}
	return &model.RateLimitExceededError{
		Category:  category,
		Remaining: snap.Remaining,
		Required:  required,
		ResetAt:   snap.ResetAt,
	}
}

// Observe folds quota seen on an API response into the cache. Snapshots with
// no category (no headers were sent) are ignored.
func (t *RateLimitTracker) Observe(s model.RateLimitSnapshot) {
	if s.Category == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.snapshots[s.Category]; ok && prev.FetchedAt.After(s.FetchedAt) {
		return
	}
	t.snapshots[s.Category] = s
	metrics.SetRateRemaining(string(s.Category), s.Remaining)
}

// Snapshots returns a copy of the cache ordered by category.
func (t *RateLimitTracker) Snapshots() []model.RateLimitSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.RateLimitSnapshot, 0, len(t.snapshots))
	for _, s := range t.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Start refreshes immediately and then every interval until ctx is canceled.
// Errors are logged only. Start blocks.
func (t *RateLimitTracker) Start(ctx context.Context) {
	t.refreshLogged(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit tracker stopped")
			return
		case <-ticker.C:
			t.refreshLogged(ctx)
		}
	}
}

func (t *RateLimitTracker) refreshLogged(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Debug("background rate limit refresh skipped", "error", err)
	}
}
