// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/creatorsync/internal/config"
)

// newTestClient points a client at server and records retry delays instead
// of sleeping.
func newTestClient(t *testing.T, server *httptest.Server, mutate func(*config.AnalyticsConfig)) (*Client, *[]time.Duration) {
	t.Helper()
	cfg := &config.AnalyticsConfig{
		BaseURL:        server.URL,
		VideosPath:     "/v1/videos",
		AccessToken:    "test-token",
		AccountType:    "brand",
		PageSize:       2,
		SortField:      "gmv",
		SortOrder:      "desc",
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: 100 * time.Millisecond,
	}
	if mutate != nil {
		mutate(cfg)
	}
	c := NewClient(cfg)
	var delays []time.Duration
	c.wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

var (
	testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
)

func TestFetchWindow_FollowsPageTokens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if r.URL.Path != "/v1/videos" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if q.Get("start_date") != "2024-01-01" || q.Get("end_date") != "2024-01-31" {
			t.Errorf("dates = %s..%s", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Get("page_size") != "2" || q.Get("sort_field") != "gmv" || q.Get("account_type") != "brand" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}

		switch q.Get("page_token") {
		case "":
			fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":"v1"},{"id":"v2"}],"next_page_token":"p2"}}`)
		case "p2":
			fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":"v1","gmv":"$3.00"}],"next_page_token":""}}`)
		default:
			t.Errorf("unexpected token %q", q.Get("page_token"))
		}
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	rows, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	if err != nil {
		t.Fatalf("FetchWindow() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("made %d requests, want 2", calls.Load())
	}
	// Receipt order, duplicates kept.
	if len(rows) != 3 || rows[0]["id"] != "v1" || rows[2]["gmv"] != "$3.00" {
		t.Errorf("rows = %v", rows)
	}
}

func TestFetchWindow_AccountOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer brand-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("account_type"); got != "shop" {
			t.Errorf("account_type = %q", got)
		}
		fmt.Fprint(w, `{"data":{"rows":[]}}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	rows, err := c.FetchWindow(context.Background(),
		Account{BrandID: 1, AccessToken: "brand-token", AccountType: "shop"}, testStart, testEnd)
	if err != nil || len(rows) != 0 {
		t.Errorf("FetchWindow() = %v, %v", rows, err)
	}
}

func TestFetchWindow_RateLimitNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 429", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"envelope code 429", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"code":429,"message":"too many requests"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			c, delays := newTestClient(t, server, nil)
			_, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
			if !errors.Is(err, ErrRateLimited) || !IsRateLimited(err) {
				t.Fatalf("error = %v, want ErrRateLimited", err)
			}
			if calls.Load() != 1 || len(*delays) != 0 {
				t.Errorf("calls = %d, delays = %v; want a single attempt", calls.Load(), *delays)
			}
		})
	}
}

func TestFetchWindow_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			fmt.Fprint(w, `{"code":503,"message":"busy"}`)
		default:
			fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":"v1"}]}}`)
		}
	}))
	defer server.Close()

	c, delays := newTestClient(t, server, nil)
	rows, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	if err != nil {
		t.Fatalf("FetchWindow() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(*delays) != len(want) || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

// dropConnection closes the client connection without writing a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("hijack: %v", err)
	}
	_ = conn.Close()
}

func TestFetchWindow_RetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			dropConnection(t, w)
			return
		}
		if r.URL.Query().Get("page_token") == "" {
			fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":"v1"},{"id":"v2"}],"next_page_token":"p2"}}`)
			return
		}
		fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":"v3"}]}}`)
	}))
	defer server.Close()

	c, delays := newTestClient(t, server, func(cfg *config.AnalyticsConfig) {
		cfg.CircuitBreakerEnabled = true
	})
	rows, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	if err != nil {
		t.Fatalf("FetchWindow() error = %v", err)
	}
	if len(rows) != 3 || rows[2]["id"] != "v3" {
		t.Errorf("rows = %v, want all three", rows)
	}
	if len(*delays) != 1 || (*delays)[0] != 100*time.Millisecond {
		t.Errorf("delays = %v, want one delay of the base", *delays)
	}
	if calls.Load() != 3 {
		t.Errorf("made %d requests, want 3", calls.Load())
	}
	counts := c.breaker.Counts()
	if counts.TotalFailures != 1 || counts.Requests != 3 {
		t.Errorf("breaker counts = %+v, want 1 failure in 3 requests", counts)
	}
}

func TestFetchWindow_TransportErrorsExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	c, delays := newTestClient(t, server, nil)
	_, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if calls.Load() != 3 || len(*delays) != 2 {
		t.Errorf("calls = %d, delays = %v; want 3 attempts and 2 delays", calls.Load(), *delays)
	}
}

func TestFetchWindow_KeepsLargeNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":{"rows":[{"id":7312345678901234567},{"id":7312345678901234568}]}}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	rows, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	if err != nil {
		t.Fatalf("FetchWindow() error = %v", err)
	}
	want := []string{"7312345678901234567", "7312345678901234568"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, id := range want {
		if got := fmt.Sprint(rows[i]["id"]); got != id {
			t.Errorf("row %d id = %s, want %s", i, got, id)
		}
	}
}

func TestFetchWindow_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	_, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v, want *ServerError", err)
	}
	if calls.Load() != 3 {
		t.Errorf("made %d attempts, want 3", calls.Load())
	}
}

func TestFetchWindow_ClientErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
	}{
		{"http 403", http.StatusForbidden, `{"code":40100,"message":"forbidden"}`, 0},
		{"envelope error", http.StatusOK, `{"code":40001,"message":"bad date"}`, 40001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c, _ := newTestClient(t, server, nil)
			_, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", apiErr.Code, tt.wantCode)
			}
			if calls.Load() != 1 {
				t.Errorf("made %d attempts, want 1", calls.Load())
			}
		})
	}
}

func TestFetchWindow_UnexpectedShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway</html>`},
		{"missing data", `{"code":0}`},
		{"missing rows", `{"code":0,"data":{"next_page_token":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c, _ := newTestClient(t, server, nil)
			_, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
			var shapeErr *UnexpectedResponseShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("error = %v, want *UnexpectedResponseShapeError", err)
			}
			if shapeErr.Sample != tt.body {
				t.Errorf("sample = %q", shapeErr.Sample)
			}
		})
	}
}

func TestFetchWindow_CircuitBreakerPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"rows":[{"id":"v1"}]}}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, func(cfg *config.AnalyticsConfig) {
		cfg.CircuitBreakerEnabled = true
		cfg.RequestsPerSecond = 100
		cfg.Burst = 5
	})
	rows, err := c.FetchWindow(context.Background(), Account{BrandID: 1}, testStart, testEnd)
	if err != nil || len(rows) != 1 {
		t.Errorf("FetchWindow() = %v, %v", rows, err)
	}
}

func TestTruncateSample(t *testing.T) {
	t.Parallel()

	long := make([]byte, maxSampleBytes+100)
	for i := range long {
		long[i] = 'a'
	}
	if got := truncateSample(long); len(got) <= maxSampleBytes || got[:maxSampleBytes] != string(long[:maxSampleBytes]) {
		t.Errorf("truncated sample has length %d", len(got))
	}
	if got := truncateSample([]byte("short")); got != "short" {
		t.Errorf("truncateSample(short) = %q", got)
	}
}
