package middleware

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	ScansStarted       uint64
	ScansReady         uint64
	ScansFallback      uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementScansStarted counts uploads that opened a workflow
func IncrementScansStarted() {
	atomic.AddUint64(&globalMetrics.ScansStarted, 1)
}

// IncrementScansReady counts workflows that reached Ready
func IncrementScansReady() {
	atomic.AddUint64(&globalMetrics.ScansReady, 1)
}

// IncrementScansFallback counts workflows that recovered via synthetic data
func IncrementScansFallback() {
	atomic.AddUint64(&globalMetrics.ScansFallback, 1)
}

// MetricsMiddleware tracks request counters
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
		atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
		defer atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < http.StatusInternalServerError {
			atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}

// MetricsHandler serves a JSON snapshot of the counters
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]any{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"scans_started":        atomic.LoadUint64(&globalMetrics.ScansStarted),
		"scans_ready":          atomic.LoadUint64(&globalMetrics.ScansReady),
		"scans_fallback":       atomic.LoadUint64(&globalMetrics.ScansFallback),
		"uptime_seconds":       int64(time.Since(globalMetrics.StartTime).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
