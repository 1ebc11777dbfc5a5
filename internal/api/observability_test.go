package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gridpath/internal/sim"
)

func TestDebugHandlerHealth(t *testing.T) {
	h := DebugHandler(DefaultObservabilityConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestDebugHandlerBasicAuth(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.BasicAuthUser = "ops"
	cfg.BasicAuthPass = "secret"
	h := DebugHandler(cfg)

	tests := []struct {
		name       string
		user, pass string
		wantStatus int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "ops", "nope", http.StatusUnauthorized},
		{"valid", "ops", "secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestObservabilityFromEnv(t *testing.T) {
	t.Setenv("DEBUG_BASIC_AUTH_USER", "ops")
	t.Setenv("DEBUG_BASIC_AUTH_PASS", "secret")

	cfg := ObservabilityFromEnv(DefaultObservabilityConfig())
	if cfg.BasicAuthUser != "ops" || cfg.BasicAuthPass != "secret" {
		t.Errorf("credentials not applied: %+v", cfg)
	}
	if cfg.ListenAddr != "127.0.0.1:6060" {
		t.Errorf("listen address should stay on localhost, got %s", cfg.ListenAddr)
	}
}

func TestMetricsExported(t *testing.T) {
	RecordTick(sim.TickStats{Tick: 1, Duration: time.Millisecond, Commands: 2, Steps: 16, Obstacles: 3})
	RecordSearch(sim.SearchOutcome{Found: true, Visited: 40, PathLength: 12})
	RecordSearch(sim.SearchOutcome{Found: false, Visited: 9})
	UpdateEventLogStats(10, 1)

	rec := httptest.NewRecorder()
	DebugHandler(DefaultObservabilityConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"sim_tick_duration_seconds",
		"sim_search_steps_per_tick",
		`sim_searches_total{result="found"}`,
		`sim_searches_total{result="unreachable"}`,
		"sim_obstacle_count 3",
		"event_log_dropped 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
