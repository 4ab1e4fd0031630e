// Package history keeps a best-effort on-disk log of recent usage samples
// and renders them as a sparkline. History is cosmetic: every write failure
// is logged and swallowed so it can never break a render.
package history

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// horizon is how far back samples are kept; anything older is pruned on
// every write.
const horizon = 24 * time.Hour

// Sample is one point-in-time usage reading. Nil percentages mean the
// corresponding window was absent when the sample was taken.
type Sample struct {
	TimestampMs   int64    `json:"timestamp"`
	BlockPercent  *float64 `json:"blockPercent"`
	WeeklyPercent *float64 `json:"weeklyPercent"`
}

// historyFile is the on-disk shape.
type historyFile struct {
	Samples []Sample `json:"samples"`
}

// Sampler appends usage samples to a single JSON file, pruning to the
// rolling 24-hour horizon on every addition.
type Sampler struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithClock sets a custom time source (for testing).
func WithClock(now func() time.Time) SamplerOption {
	return func(s *Sampler) {
		s.now = now
	}
}

// NewSampler creates a sampler writing to the given file path.
func NewSampler(path string, logger *slog.Logger, opts ...SamplerOption) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sampler{path: path, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends one sample stamped with the current time, prunes expired
// samples, and persists the remainder. Failures never propagate.
func (s *Sampler) Add(blockPercent, weeklyPercent *float64) {
	now := s.now()
	samples := append(s.Load(), Sample{
		TimestampMs:   now.UnixMilli(),
		BlockPercent:  blockPercent,
		WeeklyPercent: weeklyPercent,
	})
	samples = prune(samples, now)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Debug("history dir creation failed", "error", err)
		return
	}
	data, err := json.Marshal(historyFile{Samples: samples})
	if err != nil {
		s.logger.Debug("history marshal failed", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Debug("history write failed", "path", s.path, "error", err)
	}
}

// Load reads the current samples in stored order. A missing or corrupt
// file reads as empty.
func (s *Sampler) Load() []Sample {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Debug("history file corrupt, treating as empty", "path", s.path)
		return nil
	}
	return file.Samples
}

// prune drops samples older than the horizon, preserving order.
func prune(samples []Sample, now time.Time) []Sample {
	cutoff := now.Add(-horizon).UnixMilli()
	kept := samples[:0]
	for _, sample := range samples {
		if sample.TimestampMs >= cutoff {
			kept = append(kept, sample)
		}
	}
	return kept
}
