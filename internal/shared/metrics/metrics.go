package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	analysisStartedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started",
	})
	analysisCompletedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed",
	})
	analysisFailedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed",
	})
	analysisDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})

	generationTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_total",
		Help: "Resume generations by outcome",
	}, []string{"outcome"})
	generationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_duration_ms",
		Help:    "Generation duration in milliseconds",
		Buckets: []float64{1000, 5000, 10000, 30000, 60000, 90000, 120000},
	})

	reasoningCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "reasoning_calls_total",
		Help: "Reasoning service calls by operation and outcome",
	}, []string{"op", "outcome"})
	reasoningDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reasoning_call_duration_seconds",
		Help:    "Reasoning service call latency",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"op"})

	sessionsCreatedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Sessions created",
	})
	sessionsDeletedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "sessions_deleted_total",
		Help: "Sessions deleted",
	})
	lockConflictsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "session_lock_conflicts_total",
		Help: "Mutating operations rejected because the session was busy",
	})

	httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Inc()
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// ObserveGeneration records one generation attempt.
func ObserveGeneration(outcome string, d time.Duration) {
	generationTotal.WithLabelValues(outcome).Inc()
	generationDuration.Observe(float64(d.Milliseconds()))
}

// ObserveReasoningCall records one reasoning service call.
func ObserveReasoningCall(op, outcome string, d time.Duration) {
	reasoningCalls.WithLabelValues(op, outcome).Inc()
	reasoningDuration.WithLabelValues(op).Observe(d.Seconds())
}

func IncSessionsCreated() { sessionsCreatedTotal.Inc() }
func IncSessionsDeleted() { sessionsDeletedTotal.Inc() }
func IncLockConflict()    { lockConflictsTotal.Inc() }

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
	return gin.WrapH(h)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
