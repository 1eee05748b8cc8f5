package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_nil_safe(t *testing.T) {
	var m *Metrics
	m.IncRequests()
	m.IncErrors()
	m.IncSessionsStarted()
	m.IncCreateFailures()
	m.IncReleaseFailures()
	m.IncRebuilds()
	m.AddRelayBytes(10)
	m.SetActiveSessions(3)
	m.SetSlotCount(4)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncSessionsStarted()
	m.AddRelayBytes(128)

	refreshed := false
	h := m.Handler(func() {
		refreshed = true
		m.SetActiveSessions(2)
		m.SetSlotCount(4)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !refreshed {
		t.Error("gauges were not refreshed before scrape")
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"wall_sessions_started_total 1",
		"wall_relay_bytes_total 128",
		"wall_active_sessions 2",
		"wall_slot_count 4",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, p := range []string{"/wall", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "wall_requests_total 2") || !strings.Contains(body, "wall_errors_total 1") {
		t.Errorf("unexpected counters:\n%s", body)
	}
}
