// Package render composes the single powerline statusline from the engine's
// outputs. It holds no state and no hard logic beyond layout.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccline/ccline/internal/api"
	"github.com/ccline/ccline/internal/progress"
	"github.com/ccline/ccline/internal/usage"
)

const separator = "" // powerline right-pointing chevron

var (
	colorDir    = lipgloss.Color("24")  // deep blue
	colorBranch = lipgloss.Color("60")  // slate
	colorModel  = lipgloss.Color("97")  // violet
	colorOK     = lipgloss.Color("22")  // green
	colorWarn   = lipgloss.Color("130") // orange
	colorHot    = lipgloss.Color("124") // red
	colorSpark  = lipgloss.Color("236") // near-black

	textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// segment is one colored block of the line.
type segment struct {
	text string
	bg   lipgloss.Color
}

// Line assembles the full statusline. snapshot may be nil (logged out,
// offline); the line then degrades to the context segments.
func Line(payload Payload, snapshot *api.UsageSnapshot, trend map[api.Dimension]usage.Direction,
	schedule progress.Schedule, spark string, now time.Time) string {

	var segments []segment

	if dir := workspaceDir(payload); dir != "" {
		segments = append(segments, segment{text: " " + dir + " ", bg: colorDir})
	}
	if branch := payload.Branch; branch != "" {
		segments = append(segments, segment{text: "  " + branch + " ", bg: colorBranch})
	}
	if model := payload.Model.DisplayName; model != "" {
		segments = append(segments, segment{text: " " + model + " ", bg: colorModel})
	}

	if w := snapshot.Window(api.DimFiveHour); w != nil {
		text := fmt.Sprintf(" 5h %.0f%%%s %s ",
			w.PercentUsed, trendArrow(trend[api.DimFiveHour]), remaining(w.ResetsAt, now))
		segments = append(segments, segment{text: text, bg: severity(w)})
	}
	if w := snapshot.Window(api.DimSevenDay); w != nil {
		text := fmt.Sprintf(" wk %.0f%%%s·%d%% ",
			w.PercentUsed, trendArrow(trend[api.DimSevenDay]), weeklyProgress(w, schedule, now))
		segments = append(segments, segment{text: text, bg: severity(w)})
	}
	if spark != "" {
		segments = append(segments, segment{text: " " + spark + " ", bg: colorSpark})
	}

	return join(segments)
}

// workspaceDir picks the short name of the active directory.
func workspaceDir(payload Payload) string {
	dir := payload.Workspace.CurrentDir
	if dir == "" {
		dir = payload.Workspace.ProjectDir
	}
	if dir == "" {
		return ""
	}
	return filepath.Base(dir)
}

// severity colors a usage segment by how close the window is to its limit.
func severity(w *api.Window) lipgloss.Color {
	switch {
	case w.OverLimit || w.PercentUsed >= 90:
		return colorHot
	case w.PercentUsed >= 70:
		return colorWarn
	default:
		return colorOK
	}
}

func trendArrow(dir usage.Direction) string {
	switch dir {
	case usage.Up:
		return "↑"
	case usage.Down:
		return "↓"
	case usage.Same:
		return "→"
	}
	return ""
}

// remaining formats minutes-until-reset as a compact clock figure.
func remaining(resetsAt time.Time, now time.Time) string {
	minutes := progress.MinutesUntil(resetsAt, now)
	if minutes >= 60 {
		return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// weeklyProgress prefers the remote anchor and falls back to the configured
// schedule when the API reported no reset time (it then equals "now", which
// the remote calculator would read as a period boundary).
func weeklyProgress(w *api.Window, schedule progress.Schedule, now time.Time) int {
	if w.ResetsAt.After(now) {
		return progress.Remote(w.ResetsAt, progress.WeeklyPeriod, now)
	}
	return progress.Fallback(schedule, now)
}

// join renders segments with powerline chevrons between them.
func join(segments []segment) string {
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(textStyle.Background(seg.bg).Render(seg.text))
		sep := lipgloss.NewStyle().Foreground(seg.bg)
		if i+1 < len(segments) {
			sep = sep.Background(segments[i+1].bg)
		}
		b.WriteString(sep.Render(separator))
	}
	return b.String()
}
