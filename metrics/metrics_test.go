package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	m := New()
	m.DuplicateRejected()
	m.DuplicateRejected()
	m.SessionSaved(true)
	m.SessionSaved(false)
	m.SessionDiscarded()

	if got := counterValue(t, m, "vendroute_duplicate_code_rejections_total", nil); got != 2 {
		t.Errorf("duplicate rejections = %v, want 2", got)
	}
	if got := counterValue(t, m, "vendroute_session_saves_total", map[string]string{"result": "error"}); got != 1 {
		t.Errorf("failed saves = %v, want 1", got)
	}
	if got := counterValue(t, m, "vendroute_session_discards_total", nil); got != 1 {
		t.Errorf("discards = %v, want 1", got)
	}
}

func TestTrackSessions(t *testing.T) {
	m := New()
	n := 3
	m.TrackSessions(func() int { return n })
	if got := counterValue(t, m, "vendroute_editing_sessions", nil); got != 3 {
		t.Errorf("sessions = %v, want 3", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/api/products/7", "/api/products/8"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}
	got := counterValue(t, m, "vendroute_http_requests_total",
		map[string]string{"route": "/api/products/{id}", "code": "404"})
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), "vendroute_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
}
