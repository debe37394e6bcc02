// Package metrics provides counters and gauges for the billing service
// with a Prometheus text exposition endpoint. Like the rest of the
// observability surface it is standard-library only: the values tracked
// here are few enough that a client dependency buys nothing.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
)

// Registry holds all metric state for one server process.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*int64
	gauges   map[string]*int64
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*int64),
		gauges:   make(map[string]*int64),
	}
}

func key(name string, labels ...string) string {
	if len(labels) == 0 {
		return name
	}
	return name + "|" + strings.Join(labels, "|")
}

// Inc increments a counter identified by name and optional label values.
func (r *Registry) Inc(name string, labels ...string) {
	r.Add(name, 1, labels...)
}

// Add increments a counter by delta.
func (r *Registry) Add(name string, delta int64, labels ...string) {
	k := key(name, labels...)
	r.mu.RLock()
	p, ok := r.counters[k]
	r.mu.RUnlock()
	if ok {
		atomic.AddInt64(p, delta)
		return
	}
	r.mu.Lock()
	p, ok = r.counters[k]
	if !ok {
		v := delta
		r.counters[k] = &v
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	atomic.AddInt64(p, delta)
}

// Counter returns the current value of a counter.
func (r *Registry) Counter(name string, labels ...string) int64 {
	r.mu.RLock()
	p, ok := r.counters[key(name, labels...)]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// SetGauge sets a gauge to val.
func (r *Registry) SetGauge(name string, val int64) {
	r.mu.Lock()
	p, ok := r.gauges[name]
	if !ok {
		v := val
		r.gauges[name] = &v
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	atomic.StoreInt64(p, val)
}

// AddGauge adjusts a gauge by delta.
func (r *Registry) AddGauge(name string, delta int64) {
	r.mu.Lock()
	p, ok := r.gauges[name]
	if !ok {
		v := delta
		r.gauges[name] = &v
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	atomic.AddInt64(p, delta)
}

// Gauge returns the current value of a gauge.
func (r *Registry) Gauge(name string) int64 {
	r.mu.RLock()
	p, ok := r.gauges[name]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// Middleware records request counts by method, route, and status, plus an
// in-flight gauge.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r.AddGauge("http_requests_in_flight", 1)
			err := next(c)
			r.AddGauge("http_requests_in_flight", -1)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			r.Inc("http_requests_total",
				c.Request().Method, route, fmt.Sprintf("%d", c.Response().Status))
			return err
		}
	}
}

// counterMeta maps counter names to the label names used in exposition.
var counterMeta = map[string]struct {
	help   string
	labels []string
}{
	"http_requests_total":          {"Total HTTP requests.", []string{"method", "route", "status"}},
	"invoices_created_total":       {"Invoices created.", nil},
	"payments_recorded_total":      {"Payments recorded.", nil},
	"accrual_lines_posted_total":   {"Daily room-charge lines posted by the accrual batch.", nil},
	"import_rows_total":            {"Bulk import rows processed by outcome.", []string{"outcome"}},
	"stock_dispense_total":         {"Medicine stock decrements from invoice dispensing.", nil},
}

// PrometheusHandler serves all registered metrics in Prometheus text
// exposition format.
func (r *Registry) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		r.mu.RLock()
		counterKeys := make([]string, 0, len(r.counters))
		for k := range r.counters {
			counterKeys = append(counterKeys, k)
		}
		gaugeKeys := make([]string, 0, len(r.gauges))
		for k := range r.gauges {
			gaugeKeys = append(gaugeKeys, k)
		}
		r.mu.RUnlock()
		sort.Strings(counterKeys)
		sort.Strings(gaugeKeys)

		seen := make(map[string]bool)
		for _, k := range counterKeys {
			parts := strings.Split(k, "|")
			name := parts[0]
			if !seen[name] {
				seen[name] = true
				if meta, ok := counterMeta[name]; ok {
					fmt.Fprintf(&b, "# HELP %s %s\n", name, meta.help)
				}
				fmt.Fprintf(&b, "# TYPE %s counter\n", name)
			}

			val := r.Counter(name, parts[1:]...)
			meta := counterMeta[name]
			if len(parts) > 1 && len(meta.labels) == len(parts)-1 {
				labelPairs := make([]string, len(meta.labels))
				for i, ln := range meta.labels {
					labelPairs[i] = fmt.Sprintf("%s=%q", ln, parts[i+1])
				}
				fmt.Fprintf(&b, "%s{%s} %d\n", name, strings.Join(labelPairs, ","), val)
			} else {
				fmt.Fprintf(&b, "%s %d\n", name, val)
			}
		}

		for _, k := range gaugeKeys {
			fmt.Fprintf(&b, "# TYPE %s gauge\n", k)
			fmt.Fprintf(&b, "%s %d\n", k, r.Gauge(k))
		}

		return c.String(http.StatusOK, b.String())
	}
}
