// Package usage holds the per-process usage cache and derives trend
// directions between consecutive snapshots.
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/ccline/ccline/internal/api"
	"github.com/ccline/ccline/internal/credential"
)

// Direction is the movement of one window's percentage between the two most
// recent snapshots.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Same    Direction = "same"
	Unknown Direction = "unknown"
)

// trendDeadBand is the minimum percentage-point delta treated as movement;
// anything within it reads as Same so sub-percent noise cannot flap the
// indicator.
const trendDeadBand = 0.5

// Fetcher retrieves a snapshot for a token. *api.Client satisfies it.
type Fetcher interface {
	FetchUsage(ctx context.Context, token string) (*api.UsageSnapshot, error)
}

// State is the engine's only mutable state: the latest snapshot, the one
// before it, the fetch timestamp, and the resolved token. It is owned by
// the caller and passed by handle; there are no package-level globals. The
// process is single-threaded per render cycle, so no locking is needed.
type State struct {
	resolver credential.Resolver
	fetcher  Fetcher
	logger   *slog.Logger
	now      func() time.Time

	current   *api.UsageSnapshot
	previous  *api.UsageSnapshot
	fetchedAt time.Time
	token     string
}

// StateOption configures a State.
type StateOption func(*State)

// WithClock sets a custom time source (for testing).
func WithClock(now func() time.Time) StateOption {
	return func(s *State) {
		s.now = now
	}
}

// NewState creates a cold usage cache. resolver may be nil (unknown
// platform), in which case every refresh reports no usage.
func NewState(resolver credential.Resolver, fetcher Fetcher, logger *slog.Logger, opts ...StateOption) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUsage returns the freshest snapshot available, fetching at most once
// per pollInterval. It returns nil when no credential can be resolved or
// the fetch fails; cached snapshots are never discarded on failure.
func (s *State) GetUsage(ctx context.Context, pollInterval time.Duration) *api.UsageSnapshot {
	now := s.now()

	if s.current != nil && now.Sub(s.fetchedAt) < pollInterval {
		s.logger.Debug("usage cache hit", "age", now.Sub(s.fetchedAt))
		return s.current
	}

	if s.token == "" {
		if s.resolver == nil {
			s.logger.Debug("no credential resolver for this platform")
			return nil
		}
		token, ok := s.resolver.Resolve(ctx)
		if !ok {
			s.logger.Debug("credential resolution failed")
			return nil
		}
		s.token = token
	}

	snapshot, err := s.fetcher.FetchUsage(ctx, s.token)
	if err != nil {
		// Drop the token so the next cycle re-resolves; an expired
		// credential heals itself once Claude Code refreshes it.
		s.logger.Debug("usage fetch failed", "error", err)
		s.token = ""
		return nil
	}

	s.previous = s.current
	s.current = snapshot
	s.fetchedAt = s.now()
	return s.current
}

// Trend compares current against previous per dimension. Dimensions missing
// from either snapshot report Unknown.
func (s *State) Trend() map[api.Dimension]Direction {
	trend := make(map[api.Dimension]Direction, len(api.Dimensions))
	for _, dim := range api.Dimensions {
		trend[dim] = s.trendFor(dim)
	}
	return trend
}

func (s *State) trendFor(dim api.Dimension) Direction {
	cur := s.current.Window(dim)
	prev := s.previous.Window(dim)
	if cur == nil || prev == nil {
		return Unknown
	}
	delta := cur.PercentUsed - prev.PercentUsed
	switch {
	case delta > trendDeadBand:
		return Up
	case delta < -trendDeadBand:
		return Down
	default:
		return Same
	}
}

// Clear resets the cache to cold: snapshots, timestamp, and token.
func (s *State) Clear() {
	s.current = nil
	s.previous = nil
	s.fetchedAt = time.Time{}
	s.token = ""
}
