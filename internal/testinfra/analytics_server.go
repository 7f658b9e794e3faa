// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const analyticsDateLayout = "2006-01-02"

// AnalyticsRequest records one request received by MockAnalyticsServer.
type AnalyticsRequest struct {
	StartDate     string
	EndDate       string
	PageToken     string
	PageSize      string
	AccountType   string
	Authorization string
	ReceivedAt    time.Time
}

// WindowDays returns end-start in days, or -1 if either date is malformed.
func (r AnalyticsRequest) WindowDays() int {
	start, err := time.Parse(analyticsDateLayout, r.StartDate)
	if err != nil {
		return -1
	}
	end, err := time.Parse(analyticsDateLayout, r.EndDate)
	if err != nil {
		return -1
	}
	return int(end.Sub(start).Hours() / 24)
}

// ScriptedResponse overrides the next response regardless of window.
// A zero Status means 200.
type ScriptedResponse struct {
	Status int
	Body   string
}

// MockAnalyticsServer serves the creator video analytics endpoint from
// in-memory pages keyed by window length. Pages are chained with
// next_page_token values "p1", "p2", and so on.
type MockAnalyticsServer struct {
	server *httptest.Server

	mu       sync.Mutex
	pages    map[int][][]map[string]any
	script   []ScriptedResponse
	requests []AnalyticsRequest
}

// NewMockAnalyticsServer starts a server answering on any path.
func NewMockAnalyticsServer() *MockAnalyticsServer {
	m := &MockAnalyticsServer{pages: make(map[int][][]map[string]any)}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the base URL of the server.
func (m *MockAnalyticsServer) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockAnalyticsServer) Close() {
	m.server.Close()
}

// SetWindow sets the pages returned for windows of the given length.
func (m *MockAnalyticsServer) SetWindow(days int, pages ...[]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[days] = pages
}

// Enqueue queues responses that are served, in order, before any page.
func (m *MockAnalyticsServer) Enqueue(responses ...ScriptedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// Requests returns a copy of every request received so far.
func (m *MockAnalyticsServer) Requests() []AnalyticsRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnalyticsRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockAnalyticsServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears pages, scripted responses and recorded requests.
func (m *MockAnalyticsServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[int][][]map[string]any)
	m.script = nil
	m.requests = nil
}

func (m *MockAnalyticsServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := AnalyticsRequest{
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		PageToken:     q.Get("page_token"),
		PageSize:      q.Get("page_size"),
		AccountType:   q.Get("account_type"),
		Authorization: r.Header.Get("Authorization"),
		ReceivedAt:    time.Now(),
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var scripted *ScriptedResponse
	if len(m.script) > 0 {
		s := m.script[0]
		m.script = m.script[1:]
		scripted = &s
	}
	pages := m.pages[req.WindowDays()]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if scripted != nil {
		status := scripted.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(scripted.Body))
		return
	}

	index := 0
	if tok := strings.TrimPrefix(req.PageToken, "p"); req.PageToken != "" {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":40000,"message":"invalid page_token"}`))
			return
		}
		index = n
	}

	rows := []map[string]any{}
	if index < len(pages) && pages[index] != nil {
		rows = pages[index]
	}
	data := map[string]any{"rows": rows}
	if index+1 < len(pages) {
		data["next_page_token"] = "p" + strconv.Itoa(index+1)
	}

	body, err := json.Marshal(map[string]any{"code": 0, "message": "ok", "data": data})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(body)
}
