// Package metrics exposes Prometheus instrumentation for the rectification
// pipeline.
//
// A nil *Metrics is valid and records nothing, so library callers that do
// not care about instrumentation can pass nil.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "docscan"

// Metrics holds the pipeline collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	runs            *prometheus.CounterVec
	duration        prometheus.Histogram
	focusPoints     prometheus.Histogram
	fallbackRetries prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rectify_total",
			Help:      "Rectification runs by final state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rectify_duration_seconds",
			Help:      "Wall time of one rectification run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		focusPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "focus_points",
			Help:      "Fiducial focus points found per image.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 12},
		}),
		fallbackRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_retries_total",
			Help:      "Fallback candidates tried after the largest one failed.",
		}),
	}
	m.registry.MustRegister(m.runs, m.duration, m.focusPoints, m.fallbackRetries)
	return m
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state).Inc()
	m.duration.Observe(d.Seconds())
}

// ObserveFocusPoints records how many focus points one image produced.
func (m *Metrics) ObserveFocusPoints(n int) {
	if m == nil {
		return
	}
	m.focusPoints.Observe(float64(n))
}

// IncFallbackRetry counts one retry on a smaller fallback candidate.
func (m *Metrics) IncFallbackRetry() {
	if m == nil {
		return
	}
	m.fallbackRetries.Inc()
}

// Registry returns the registry holding the pipeline collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
