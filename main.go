// Command ccline renders a single powerline statusline for Claude Code,
// combining workspace context with live usage windows from the quota API.
// It is invoked fresh on each render cycle, reads the statusline payload
// from stdin, and writes exactly one line to stdout. Usage failures never
// break the line; they just drop the usage segments.
package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ccline/ccline/internal/api"
	"github.com/ccline/ccline/internal/config"
	"github.com/ccline/ccline/internal/credential"
	"github.com/ccline/ccline/internal/history"
	"github.com/ccline/ccline/internal/render"
	"github.com/ccline/ccline/internal/store"
	"github.com/ccline/ccline/internal/usage"
)

//go:embed VERSION
var embeddedVersion string

var version = "dev"

func init() {
	if version == "dev" {
		version = strings.TrimSpace(embeddedVersion)
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if hasArg(args, "--version") {
		fmt.Println("ccline " + version)
		return nil
	}

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	if hasArg(args, "history") {
		return printHistory(cfg, os.Stdout)
	}

	ctx := context.Background()
	payload := render.ReadPayload(os.Stdin)
	payload.Branch = render.GitBranch(ctx, payload.Workspace.CurrentDir)

	resolver := credential.ForOS(runtime.GOOS, logger)
	client := api.NewClient(version, logger)
	state := usage.NewState(resolver, client, logger)

	now := time.Now()
	snapshot := state.GetUsage(ctx, cfg.PollInterval)
	trend := state.Trend()

	spark := ""
	if !cfg.HistoryOff {
		spark = recordHistory(cfg, logger, snapshot)
	}
	if snapshot != nil {
		archiveSnapshot(cfg, logger, snapshot, now)
	}

	fmt.Println(render.Line(payload, snapshot, trend, cfg.ResetSchedule, spark, now))
	return nil
}

// recordHistory appends the current percentages to the rolling on-disk log
// and returns the sparkline for the short window. Best effort throughout.
func recordHistory(cfg *config.Config, logger *slog.Logger, snapshot *api.UsageSnapshot) string {
	sampler := history.NewSampler(cfg.HistoryPath, logger)
	if snapshot != nil {
		sampler.Add(
			windowPercent(snapshot.FiveHour),
			windowPercent(snapshot.SevenDay),
		)
	}
	return history.Sparkline(history.BlockPercents(sampler.Load()), 12)
}

func windowPercent(w *api.Window) *float64 {
	if w == nil {
		return nil
	}
	pct := w.PercentUsed
	return &pct
}

// archiveSnapshot appends the snapshot to the SQLite archive backing the
// history subcommand. Failures are logged and swallowed.
func archiveSnapshot(cfg *config.Config, logger *slog.Logger, snapshot *api.UsageSnapshot, now time.Time) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Debug("archive open failed", "path", cfg.DBPath, "error", err)
		return
	}
	defer s.Close()

	if _, err := s.InsertSnapshot(snapshot, now); err != nil {
		logger.Debug("archive insert failed", "error", err)
	}
	if err := s.Prune(30 * 24 * time.Hour); err != nil {
		logger.Debug("archive prune failed", "error", err)
	}
}

// printHistory renders per-day peak utilization for the last week.
func printHistory(cfg *config.Config, w io.Writer) error {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer s.Close()

	peaks, err := s.QueryDailyPeaks(7)
	if err != nil {
		return fmt.Errorf("querying archive: %w", err)
	}
	if len(peaks) == 0 {
		fmt.Fprintln(w, "no archived usage yet")
		return nil
	}

	fmt.Fprintf(w, "%-12s %8s %8s %8s %8s\n", "day", "5h", "7d", "opus", "sonnet")
	for _, p := range peaks {
		fmt.Fprintf(w, "%-12s %8s %8s %8s %8s\n",
			p.Day, cell(p.FiveHour), cell(p.SevenDay), cell(p.SevenDayOpus), cell(p.SevenDaySonnet))
	}
	return nil
}

func cell(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", v.Float64)
}

func hasArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

// newLogger builds the opt-in debug channel. The statusline owns stdout, so
// logs go to stderr only when --debug is set and are dropped otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	if !cfg.DebugMode {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}
