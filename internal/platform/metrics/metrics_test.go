package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCounters(t *testing.T) {
	r := NewRegistry()
	r.Inc("invoices_created_total")
	r.Inc("invoices_created_total")
	r.Inc("import_rows_total", "accepted")
	r.Inc("import_rows_total", "rejected")
	r.Inc("import_rows_total", "accepted")

	if got := r.Counter("invoices_created_total"); got != 2 {
		t.Errorf("invoices_created_total = %d, want 2", got)
	}
	if got := r.Counter("import_rows_total", "accepted"); got != 2 {
		t.Errorf("accepted = %d, want 2", got)
	}
	if got := r.Counter("import_rows_total", "rejected"); got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
	if got := r.Counter("never_seen"); got != 0 {
		t.Errorf("unknown counter = %d, want 0", got)
	}
}

func TestGauges(t *testing.T) {
	r := NewRegistry()
	r.SetGauge("http_requests_in_flight", 3)
	r.AddGauge("http_requests_in_flight", -1)
	if got := r.Gauge("http_requests_in_flight"); got != 2 {
		t.Errorf("gauge = %d, want 2", got)
	}
}

func TestCounters_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Inc("payments_recorded_total")
			}
		}()
	}
	wg.Wait()
	if got := r.Counter("payments_recorded_total"); got != 1000 {
		t.Errorf("counter = %d, want 1000", got)
	}
}

func TestMiddlewareAndExposition(t *testing.T) {
	r := NewRegistry()
	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/api/v1/patients", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", r.PrometheusHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",route="/api/v1/patients",status="200"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE http_requests_total counter") {
		t.Errorf("exposition missing TYPE line:\n%s", body)
	}
	if !strings.Contains(body, "http_requests_in_flight 0") {
		t.Errorf("exposition missing in-flight gauge:\n%s", body)
	}
}
