package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ccline/ccline/internal/api"
	"github.com/ccline/ccline/internal/testutil"
)

func TestClient_FetchUsage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.DefaultUsageResponse())
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	snapshot, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot == nil {
		t.Fatal("snapshot should not be nil")
	}
	if snapshot.FiveHour == nil {
		t.Fatal("expected five_hour window")
	}
	if snapshot.FiveHour.PercentUsed != 42.5 {
		t.Errorf("expected 42.5%% five_hour utilization, got %f", snapshot.FiveHour.PercentUsed)
	}
	wantReset := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	if !snapshot.FiveHour.ResetsAt.Equal(wantReset) {
		t.Errorf("expected reset at %v, got %v", wantReset, snapshot.FiveHour.ResetsAt)
	}
	if snapshot.SevenDaySonnet == nil || snapshot.SevenDaySonnet.PercentUsed != 55.5 {
		t.Errorf("seven_day_sonnet window not parsed: %+v", snapshot.SevenDaySonnet)
	}
}

func TestClient_FetchUsage_Headers(t *testing.T) {
	var gotAuth atomic.Value
	var gotBeta atomic.Value
	var gotUserAgent atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotBeta.Store(r.Header.Get("anthropic-beta"))
		gotUserAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.DefaultUsageResponse())
	}))
	defer server.Close()

	client := api.NewClient("1.2.3", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	_, err := client.FetchUsage(context.Background(), "sk-ant-oat01-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	auth, _ := gotAuth.Load().(string)
	if auth != "Bearer sk-ant-oat01-secret" {
		t.Errorf("expected bearer header, got %q", auth)
	}
	beta, _ := gotBeta.Load().(string)
	if beta != "oauth-2025-04-20" {
		t.Errorf("unexpected anthropic-beta header: %q", beta)
	}
	ua, _ := gotUserAgent.Load().(string)
	if ua != "ccline/1.2.3" {
		t.Errorf("unexpected user agent: %q", ua)
	}
}

func TestClient_FetchUsage_MissingWindowsStayAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.ProTierUsageResponse())
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	snapshot, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.SevenDayOpus != nil {
		t.Error("null seven_day_opus should be absent, not zero-valued")
	}
	if snapshot.SevenDaySonnet != nil {
		t.Error("omitted seven_day_sonnet should be absent")
	}
	if snapshot.FiveHour == nil || snapshot.SevenDay == nil {
		t.Fatal("present windows must be parsed")
	}
}

func TestClient_FetchUsage_DefaultsWhenFieldsOmitted(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"five_hour": {}}`)
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(),
		api.WithBaseURL(server.URL),
		api.WithClock(func() time.Time { return fixed }),
	)

	snapshot, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.FiveHour == nil {
		t.Fatal("empty five_hour object should still yield a window")
	}
	if snapshot.FiveHour.PercentUsed != 0 {
		t.Errorf("missing utilization should default to 0, got %f", snapshot.FiveHour.PercentUsed)
	}
	if !snapshot.FiveHour.ResetsAt.Equal(fixed) {
		t.Errorf("missing resets_at should default to now, got %v", snapshot.FiveHour.ResetsAt)
	}
}

func TestClient_FetchUsage_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	_, err := client.FetchUsage(context.Background(), "sk-ant-oat01-stale")
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_FetchUsage_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	_, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if !errors.Is(err, api.ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
}

func TestClient_FetchUsage_NetworkError(t *testing.T) {
	client := api.NewClient("test", testutil.DiscardLogger(),
		api.WithBaseURL("http://127.0.0.1:1"),
		api.WithTimeout(500*time.Millisecond),
	)

	_, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if !errors.Is(err, api.ErrNetworkError) {
		t.Errorf("expected ErrNetworkError, got %v", err)
	}
}

func TestClient_FetchUsage_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	client := api.NewClient("test", testutil.DiscardLogger(), api.WithBaseURL(server.URL))

	_, err := client.FetchUsage(context.Background(), "sk-ant-oat01-test")
	if !errors.Is(err, api.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}
