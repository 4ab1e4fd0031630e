package history

import "strings"

// sparkGlyphs are the eight intensity levels, lowest first.
var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

// Sparkline maps the most recent width values onto intensity glyphs by
// bucketing the 0-100 range into eight equal bins. Nil values are skipped;
// an empty or all-nil input yields an empty string.
func Sparkline(values []*float64, width int) string {
	if width <= 0 {
		return ""
	}
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	if len(present) > width {
		present = present[len(present)-width:]
	}

	var b strings.Builder
	for _, v := range present {
		b.WriteRune(sparkGlyphs[bucket(v)])
	}
	return b.String()
}

// bucket maps a 0-100 percentage onto a glyph index 0-7.
func bucket(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v / 100 * 7)
}

// BlockPercents extracts the short-window series from samples, preserving
// nil gaps for Sparkline to skip.
func BlockPercents(samples []Sample) []*float64 {
	out := make([]*float64, len(samples))
	for i, s := range samples {
		out[i] = s.BlockPercent
	}
	return out
}

// WeeklyPercents extracts the weekly series from samples.
func WeeklyPercents(samples []Sample) []*float64 {
	out := make([]*float64, len(samples))
	for i, s := range samples {
		out[i] = s.WeeklyPercent
	}
	return out
}
