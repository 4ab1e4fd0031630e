package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ccline/ccline/internal/api"
	"github.com/ccline/ccline/internal/testutil"
)

type fixedResolver struct {
	token string
	ok    bool
	calls int
}

func (r *fixedResolver) Resolve(context.Context) (string, bool) {
	r.calls++
	return r.token, r.ok
}

type fakeFetcher struct {
	snapshots []*api.UsageSnapshot
	err       error
	calls     int
	tokens    []string
}

func (f *fakeFetcher) FetchUsage(_ context.Context, token string) (*api.UsageSnapshot, error) {
	f.calls++
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func snapshotWith(fiveHour, sevenDay float64) *api.UsageSnapshot {
	five := api.NewWindow(time.Now().Add(time.Hour), fiveHour)
	seven := api.NewWindow(time.Now().Add(48*time.Hour), sevenDay)
	return &api.UsageSnapshot{FiveHour: &five, SevenDay: &seven}
}

func TestState_CacheHitIssuesSingleFetch(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver := &fixedResolver{token: "sk-ant-oat01-x", ok: true}
	fetcher := &fakeFetcher{snapshots: []*api.UsageSnapshot{snapshotWith(10, 20)}}
	state := NewState(resolver, fetcher, testutil.DiscardLogger(),
		WithClock(func() time.Time { return clock }))

	first := state.GetUsage(context.Background(), 15*time.Minute)
	clock = clock.Add(5 * time.Minute)
	second := state.GetUsage(context.Background(), 15*time.Minute)

	if fetcher.calls != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", fetcher.calls)
	}
	if first == nil || second != first {
		t.Error("cache hit must return the identical snapshot")
	}
	if resolver.calls != 1 {
		t.Errorf("cache hit must not re-resolve credentials, got %d calls", resolver.calls)
	}
}

func TestState_ExpiredCacheRefetchesAndShiftsPrevious(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := snapshotWith(10, 20)
	fresh := snapshotWith(30, 40)
	fetcher := &fakeFetcher{snapshots: []*api.UsageSnapshot{old, fresh}}
	state := NewState(&fixedResolver{token: "sk-ant-oat01-x", ok: true}, fetcher,
		testutil.DiscardLogger(), WithClock(func() time.Time { return clock }))

	state.GetUsage(context.Background(), 15*time.Minute)
	clock = clock.Add(16 * time.Minute)
	got := state.GetUsage(context.Background(), 15*time.Minute)

	if fetcher.calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", fetcher.calls)
	}
	if got != fresh {
		t.Error("expected fresh snapshot after expiry")
	}
	if state.previous != old {
		t.Error("old snapshot must shift into previous")
	}
}

func TestState_ResolutionFailureLeavesStateUntouched(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []*api.UsageSnapshot{snapshotWith(10, 20)}}
	state := NewState(&fixedResolver{ok: false}, fetcher, testutil.DiscardLogger())

	if got := state.GetUsage(context.Background(), 15*time.Minute); got != nil {
		t.Error("expected nil when resolution fails")
	}
	if fetcher.calls != 0 {
		t.Error("no fetch may be issued without a token")
	}
	if state.current != nil || state.previous != nil {
		t.Error("failed resolution must not mutate cached snapshots")
	}
}

func TestState_NilResolverReturnsNil(t *testing.T) {
	fetcher := &fakeFetcher{}
	state := NewState(nil, fetcher, testutil.DiscardLogger())

	if got := state.GetUsage(context.Background(), 15*time.Minute); got != nil {
		t.Error("expected nil on unsupported platform")
	}
	if fetcher.calls != 0 {
		t.Error("no fetch may be issued on unsupported platform")
	}
}

func TestState_FetchFailureDiscardsTokenKeepsSnapshots(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver := &fixedResolver{token: "sk-ant-oat01-x", ok: true}
	old := snapshotWith(10, 20)
	fetcher := &fakeFetcher{snapshots: []*api.UsageSnapshot{old}}
	state := NewState(resolver, fetcher, testutil.DiscardLogger(),
		WithClock(func() time.Time { return clock }))

	state.GetUsage(context.Background(), 15*time.Minute)

	clock = clock.Add(16 * time.Minute)
	fetcher.err = errors.New("boom")
	if got := state.GetUsage(context.Background(), 15*time.Minute); got != nil {
		t.Error("expected nil on fetch failure")
	}
	if state.current != old {
		t.Error("fetch failure must leave current untouched")
	}
	if state.token != "" {
		t.Error("fetch failure must discard the resolved token")
	}

	// Next cycle re-resolves from scratch.
	fetcher.err = nil
	clock = clock.Add(16 * time.Minute)
	state.GetUsage(context.Background(), 15*time.Minute)
	if resolver.calls != 2 {
		t.Errorf("expected re-resolution after failure, got %d resolver calls", resolver.calls)
	}
}

func TestState_TrendDirections(t *testing.T) {
	prevFive := api.NewWindow(time.Now(), 50)
	prevSeven := api.NewWindow(time.Now(), 80)
	prevOpus := api.NewWindow(time.Now(), 10)
	curFive := api.NewWindow(time.Now(), 51)    // +1.0 -> up
	curSeven := api.NewWindow(time.Now(), 79.6) // -0.4 -> same (dead-band)
	curSonnet := api.NewWindow(time.Now(), 5)   // no previous -> unknown

	state := &State{
		previous: &api.UsageSnapshot{FiveHour: &prevFive, SevenDay: &prevSeven, SevenDayOpus: &prevOpus},
		current:  &api.UsageSnapshot{FiveHour: &curFive, SevenDay: &curSeven, SevenDaySonnet: &curSonnet},
	}

	trend := state.Trend()
	if trend[api.DimFiveHour] != Up {
		t.Errorf("five_hour: got %s, want up", trend[api.DimFiveHour])
	}
	if trend[api.DimSevenDay] != Same {
		t.Errorf("seven_day: got %s, want same", trend[api.DimSevenDay])
	}
	if trend[api.DimSevenDayOpus] != Unknown {
		t.Errorf("seven_day_opus: got %s, want unknown", trend[api.DimSevenDayOpus])
	}
	if trend[api.DimSevenDaySonnet] != Unknown {
		t.Errorf("seven_day_sonnet: got %s, want unknown", trend[api.DimSevenDaySonnet])
	}
}

func TestState_TrendDeadBandBoundary(t *testing.T) {
	prev := api.NewWindow(time.Now(), 50)
	curSame := api.NewWindow(time.Now(), 50.5) // exactly +0.5 -> same
	curDown := api.NewWindow(time.Now(), 49.4) // -0.6 -> down

	state := &State{
		previous: &api.UsageSnapshot{FiveHour: &prev, SevenDay: &prev},
		current:  &api.UsageSnapshot{FiveHour: &curSame, SevenDay: &curDown},
	}

	trend := state.Trend()
	if trend[api.DimFiveHour] != Same {
		t.Errorf("delta of exactly +0.5 must be same, got %s", trend[api.DimFiveHour])
	}
	if trend[api.DimSevenDay] != Down {
		t.Errorf("delta of -0.6 must be down, got %s", trend[api.DimSevenDay])
	}
}

func TestState_TrendWithNoSnapshots(t *testing.T) {
	state := &State{}
	for dim, dir := range state.Trend() {
		if dir != Unknown {
			t.Errorf("%s: expected unknown on cold cache, got %s", dim, dir)
		}
	}
}

func TestState_Clear(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{snapshots: []*api.UsageSnapshot{snapshotWith(10, 20)}}
	state := NewState(&fixedResolver{token: "sk-ant-oat01-x", ok: true}, fetcher,
		testutil.DiscardLogger(), WithClock(func() time.Time { return clock }))

	state.GetUsage(context.Background(), 15*time.Minute)
	state.Clear()

	if state.current != nil || state.previous != nil || state.token != "" || !state.fetchedAt.IsZero() {
		t.Error("Clear must reset all cached state")
	}

	// A cleared cache fetches again even inside the poll interval.
	state.GetUsage(context.Background(), 15*time.Minute)
	if fetcher.calls != 2 {
		t.Errorf("expected refetch after Clear, got %d fetches", fetcher.calls)
	}
}
