// Package testutil provides shared helpers for ccline tests.
package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops everything, for tests that do
// not assert on log output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DefaultUsageResponse is a realistic usage endpoint body with all four
// windows present.
func DefaultUsageResponse() string {
	return `{
		"five_hour":        {"utilization": 42.5, "resets_at": "2026-03-02T17:00:00Z"},
		"seven_day":        {"utilization": 61.0, "resets_at": "2026-03-09T00:00:00Z"},
		"seven_day_opus":   {"utilization": 12.0, "resets_at": "2026-03-09T00:00:00Z"},
		"seven_day_sonnet": {"utilization": 55.5, "resets_at": "2026-03-09T00:00:00Z"}
	}`
}

// ProTierUsageResponse mimics a lower tier where the per-model weekly
// windows are not reported.
func ProTierUsageResponse() string {
	return `{
		"five_hour": {"utilization": 10.0, "resets_at": "2026-03-02T17:00:00Z"},
		"seven_day": {"utilization": 3.5, "resets_at": "2026-03-09T00:00:00Z"},
		"seven_day_opus": null
	}`
}
