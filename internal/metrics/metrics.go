// Package metrics exposes Prometheus counters and histograms for the web
// UI and the LLM calls behind it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillmeter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillmeter_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"method", "endpoint"},
	)

	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillmeter_llm_requests_total",
			Help: "LLM requests by purpose, model and outcome",
		},
		[]string{"purpose", "model", "outcome"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillmeter_llm_request_duration_seconds",
			Help:    "Latency of LLM requests",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"purpose"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillmeter_llm_tokens_total",
			Help: "Tokens consumed by LLM requests",
		},
		[]string{"purpose", "direction"},
	)

	StageOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillmeter_stage_outcomes_total",
			Help: "Quiz generation, evaluation, session save and report build outcomes",
		},
		[]string{"stage", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestCounter,
		RequestDuration,
		LLMRequests,
		LLMDuration,
		LLMTokens,
		StageOutcomes,
	)
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveLLM records one LLM request.
func ObserveLLM(purpose, model string, d time.Duration, inputTokens, outputTokens int, err error) {
	LLMRequests.WithLabelValues(purpose, model, Outcome(err)).Inc()
	LLMDuration.WithLabelValues(purpose).Observe(d.Seconds())
	if inputTokens > 0 {
		LLMTokens.WithLabelValues(purpose, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokens.WithLabelValues(purpose, "output").Add(float64(outputTokens))
	}
}

// CountStage records the outcome of a pipeline stage.
func CountStage(stage string, err error) {
	StageOutcomes.WithLabelValues(stage, Outcome(err)).Inc()
}

// Middleware records request count and duration per route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
