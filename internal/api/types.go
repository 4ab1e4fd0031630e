package api

import (
	"encoding/json"
	"time"
)

// usageEntry is one quota bucket as the API reports it. Fields are pointers
// because null and absent both mean "not applicable for this plan".
type usageEntry struct {
	Utilization *float64 `json:"utilization"`
	ResetsAt    *string  `json:"resets_at"`
}

// usageResponse is the raw body of the usage endpoint. Buckets the account's
// tier does not have are omitted or null.
type usageResponse struct {
	FiveHour       *usageEntry `json:"five_hour"`
	SevenDay       *usageEntry `json:"seven_day"`
	SevenDayOpus   *usageEntry `json:"seven_day_opus"`
	SevenDaySonnet *usageEntry `json:"seven_day_sonnet"`
}

// Window is one normalized quota dimension. Immutable once constructed;
// build it with NewWindow so OverLimit stays consistent with PercentUsed.
type Window struct {
	ResetsAt    time.Time
	PercentUsed float64
	OverLimit   bool
}

// NewWindow constructs a Window, deriving OverLimit from the percentage.
func NewWindow(resetsAt time.Time, percentUsed float64) Window {
	return Window{
		ResetsAt:    resetsAt,
		PercentUsed: percentUsed,
		OverLimit:   percentUsed >= 100,
	}
}

// UsageSnapshot is the full set of windows from one successful fetch.
// A nil window means the API reported no such limit for this account,
// which is distinct from 0% used.
type UsageSnapshot struct {
	FiveHour       *Window
	SevenDay       *Window
	SevenDayOpus   *Window
	SevenDaySonnet *Window
}

// Dimension names one quota window within a snapshot.
type Dimension string

const (
	DimFiveHour       Dimension = "five_hour"
	DimSevenDay       Dimension = "seven_day"
	DimSevenDayOpus   Dimension = "seven_day_opus"
	DimSevenDaySonnet Dimension = "seven_day_sonnet"
)

// Dimensions lists every window a snapshot can carry, in display order.
var Dimensions = []Dimension{DimFiveHour, DimSevenDay, DimSevenDayOpus, DimSevenDaySonnet}

// Window returns the window for the given dimension, or nil if absent.
func (s *UsageSnapshot) Window(dim Dimension) *Window {
	if s == nil {
		return nil
	}
	switch dim {
	case DimFiveHour:
		return s.FiveHour
	case DimSevenDay:
		return s.SevenDay
	case DimSevenDayOpus:
		return s.SevenDayOpus
	case DimSevenDaySonnet:
		return s.SevenDaySonnet
	}
	return nil
}

// parseUsageResponse normalizes the raw API body into a snapshot. A missing
// resets_at degrades to "now" rather than failing; a missing utilization
// degrades to 0. Absent buckets stay nil.
func parseUsageResponse(body []byte, now time.Time) (*UsageSnapshot, error) {
	var resp usageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &UsageSnapshot{
		FiveHour:       normalizeEntry(resp.FiveHour, now),
		SevenDay:       normalizeEntry(resp.SevenDay, now),
		SevenDayOpus:   normalizeEntry(resp.SevenDayOpus, now),
		SevenDaySonnet: normalizeEntry(resp.SevenDaySonnet, now),
	}, nil
}

func normalizeEntry(entry *usageEntry, now time.Time) *Window {
	if entry == nil {
		return nil
	}
	resetsAt := now
	if entry.ResetsAt != nil && *entry.ResetsAt != "" {
		if t, err := time.Parse(time.RFC3339, *entry.ResetsAt); err == nil {
			resetsAt = t
		}
	}
	percent := 0.0
	if entry.Utilization != nil {
		percent = *entry.Utilization
	}
	w := NewWindow(resetsAt, percent)
	return &w
}
