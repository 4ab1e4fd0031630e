// Package progress converts quota reset timestamps into elapsed-period
// percentages and time-remaining figures. Everything here is pure; callers
// pass "now" explicitly.
package progress

import (
	"math"
	"time"
)

// WeeklyPeriod is the span of the rolling weekly windows.
const WeeklyPeriod = 7 * 24 * time.Hour

// Schedule is the recurring weekly reset point used when the API reports no
// reset timestamp for a window.
type Schedule struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// DefaultSchedule anchors the fallback week at Monday 00:00 local time.
var DefaultSchedule = Schedule{Weekday: time.Monday}

// Remote computes whole-percent progress through the period ending at
// resetsAt. When now has already passed resetsAt (the API lags briefly after
// a real reset), the calculation re-anchors one period forward instead of
// pinning at 100%. More than one full period past resetsAt is stale beyond
// self-healing and clamps to 100.
func Remote(resetsAt time.Time, period time.Duration, now time.Time) int {
	if period <= 0 {
		return 0
	}
	if now.After(resetsAt) {
		nextReset := resetsAt.Add(period)
		if now.After(nextReset) {
			return 100
		}
		resetsAt = nextReset
	}
	elapsed := now.Sub(resetsAt.Add(-period))
	return roundPercent(float64(elapsed) / float64(period))
}

// Fallback computes whole-percent progress through a 7-day period anchored
// at the most recent occurrence of the schedule point. A same-day time
// before the reset point counts as the previous period still running, so
// the figure never snaps to 0% just past midnight.
func Fallback(schedule Schedule, now time.Time) int {
	daysSince := (int(now.Weekday()) - int(schedule.Weekday) + 7) % 7
	minuteOfDay := now.Hour()*60 + now.Minute()
	resetMinute := schedule.Hour*60 + schedule.Minute
	if daysSince == 0 && minuteOfDay < resetMinute {
		daysSince += 7
	}
	elapsedHours := float64(daysSince)*24 + float64(minuteOfDay-resetMinute)/60
	return roundPercent(elapsedHours / (7 * 24))
}

// MinutesUntil returns whole minutes from now to resetsAt, floored at zero.
func MinutesUntil(resetsAt, now time.Time) int {
	minutes := int(math.Round(resetsAt.Sub(now).Minutes()))
	if minutes < 0 {
		return 0
	}
	return minutes
}

// roundPercent clamps a fraction to [0,1] and rounds to a whole percent.
func roundPercent(frac float64) int {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return int(math.Round(frac * 100))
}
