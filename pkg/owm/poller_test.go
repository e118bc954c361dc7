package owm

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

var quietLogger = log.New(io.Discard, "", 0)

func testOptions(baseURL string) []Option {
	return []Option{
		WithBaseURL(baseURL),
		WithMinInterval(10 * time.Millisecond),
		WithLogger(quietLogger),
	}
}

// waitUpdate polls until an update arrives or the timeout expires.
func waitUpdate[T Shape](t *testing.T, updates <-chan Response) Update[T] {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if u, ok := Poll[T](updates); ok {
			return u
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for update")
	return Update[T]{}
}

func TestStartPublishesLoadingFirst(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p, err := Start(context.Background(), Query{Location: "London", APIKey: "KEY"}, time.Hour, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	u, ok := PollCurrent(p.Updates())
	if !ok {
		t.Fatal("expected the loading placeholder immediately after start")
	}
	if !errors.Is(u.Err, ErrLoading) || u.Err.Error() != "loading..." {
		t.Fatalf("expected loading placeholder, got %v", u.Err)
	}

	if _, ok := PollCurrent(p.Updates()); ok {
		t.Fatal("expected nothing while the request is in flight")
	}
}

func TestPollerFetchesCurrentWeather(t *testing.T) {
	body, err := os.ReadFile("testdata/current.json")
	if err != nil {
		t.Fatal(err)
	}

	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Write(body)
	}))
	defer srv.Close()

	q := Query{Location: "2643743", Units: "metric", Lang: "en", APIKey: "KEY"}
	p, err := Start(context.Background(), q, time.Hour, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	if u := waitUpdate[CurrentWeather](t, p.Updates()); !errors.Is(u.Err, ErrLoading) {
		t.Fatalf("expected loading placeholder first, got %v", u.Err)
	}

	u := waitUpdate[CurrentWeather](t, p.Updates())
	if u.Err != nil {
		t.Fatalf("unexpected error: %v", u.Err)
	}
	if u.Weather.ID != 2643743 || u.Weather.Main.Temp != 12.47 {
		t.Fatalf("unexpected record %+v", u.Weather)
	}

	if got := gotQuery.Load().(string); got != "/weather?id=2643743&units=metric&lang=en&appid=KEY" {
		t.Fatalf("unexpected request %s", got)
	}
}

func TestPollerRetriesAfterNotFound(t *testing.T) {
	body, err := os.ReadFile("testdata/current.json")
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	p, err := Start(context.Background(), Query{Location: "Nowhere", APIKey: "KEY"}, time.Hour, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	waitUpdate[CurrentWeather](t, p.Updates())

	u := waitUpdate[CurrentWeather](t, p.Updates())
	var statusErr *StatusError
	if !errors.As(u.Err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", u.Err)
	}
	if statusErr.Code != http.StatusNotFound || u.Err.Error() != "404 Not Found" {
		t.Fatalf("unexpected status error %q", u.Err)
	}

	u = waitUpdate[CurrentWeather](t, p.Updates())
	if u.Err != nil {
		t.Fatalf("expected the next cycle to succeed, got %v", u.Err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestPollerSpacesFailedAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	opts := []Option{
		WithBaseURL(srv.URL),
		WithMinInterval(100 * time.Millisecond),
		WithLogger(quietLogger),
	}
	p, err := Start(context.Background(), Query{Location: "London", APIKey: "KEY"}, 0, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(250 * time.Millisecond)
	p.Stop()

	// One immediate attempt plus at most one per 100ms.
	if n := calls.Load(); n < 1 || n > 4 {
		t.Fatalf("expected failed attempts to be paced, got %d requests", n)
	}
}

func TestPollerStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p, err := Start(context.Background(), Query{Location: "London", APIKey: "KEY"}, time.Hour, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Stop()
	p.Stop()

	select {
	case <-p.Done():
	default:
		t.Fatal("expected Done to be closed after Stop")
	}

	for {
		if _, open := <-p.Updates(); !open {
			break
		}
	}
	if _, ok := PollCurrent(p.Updates()); ok {
		t.Fatal("expected no update from a stopped poller")
	}
}

func TestPollerStopsWithContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p, err := Start(ctx, Query{Location: "London", APIKey: "KEY"}, time.Hour, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}

func TestPollerDropsWhenBufferFull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	opts := append(testOptions(srv.URL), WithBuffer(1), WithMetrics(metrics))
	p, err := Start(context.Background(), Query{Location: "London", APIKey: "KEY"}, time.Hour, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(metrics.droppedTotal) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected updates to be dropped while nobody reads")
		}
		time.Sleep(10 * time.Millisecond)
	}

	u, ok := PollCurrent(p.Updates())
	if !ok || !errors.Is(u.Err, ErrLoading) {
		t.Fatalf("expected the oldest update to survive, got %v", u.Err)
	}
	if got := testutil.ToFloat64(metrics.cyclesTotal.WithLabelValues("current", "status")); got < 2 {
		t.Fatalf("expected status outcomes to be counted, got %v", got)
	}
}

func TestPollerCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := gobreaker.Settings{
		Timeout: time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}
	opts := append(testOptions(srv.URL), WithCircuitBreaker(breaker))
	p, err := Start(context.Background(), Query{Location: "London", APIKey: "KEY"}, time.Hour, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	waitUpdate[CurrentWeather](t, p.Updates())
	for i := 0; i < 2; i++ {
		u := waitUpdate[CurrentWeather](t, p.Updates())
		var statusErr *StatusError
		if !errors.As(u.Err, &statusErr) || statusErr.Code != http.StatusBadGateway {
			t.Fatalf("attempt %d: expected 502, got %v", i, u.Err)
		}
	}

	u := waitUpdate[CurrentWeather](t, p.Updates())
	if !errors.Is(u.Err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", u.Err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected no request while the circuit is open, got %d", calls.Load())
	}
}

func TestStartRejectsInvalidQuery(t *testing.T) {
	_, err := Start(context.Background(), Query{Location: "London"}, time.Minute, WithLogger(quietLogger))
	if err == nil || !strings.Contains(err.Error(), "APIKey") {
		t.Fatalf("expected validation error for missing api key, got %v", err)
	}
}

func TestStartMinutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p, err := StartMinutes(context.Background(), "51.5, -0.12", "metric", "en", "KEY", 10, testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stop()

	if p.Interval() != 10*time.Minute {
		t.Fatalf("expected the requested interval to be honored, got %s", p.Interval())
	}
	values := mustQuery(t, p.URL())
	if values.Get("lat") != "51.5" || values.Get("lon") != "-0.12" || values.Has("q") || values.Has("id") {
		t.Fatalf("unexpected url %s", p.URL())
	}
	if p.ID() == "" {
		t.Fatal("expected a poller id")
	}
}

func TestClampInterval(t *testing.T) {
	tests := []struct {
		in, floor, want time.Duration
	}{
		{0, DefaultMinInterval, DefaultMinInterval},
		{-time.Second, DefaultMinInterval, DefaultMinInterval},
		{time.Second, DefaultMinInterval, DefaultMinInterval},
		{30 * time.Minute, DefaultMinInterval, 30 * time.Minute},
	}
	for _, tt := range tests {
		if got := clampInterval(tt.in, tt.floor); got != tt.want {
			t.Errorf("clampInterval(%s, %s) = %s, want %s", tt.in, tt.floor, got, tt.want)
		}
	}
}
