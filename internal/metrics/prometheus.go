package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_events_logged_total",
			Help: "Total events accepted by the event store",
		},
		[]string{"type", "category"},
	)

	FlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "userpulse_event_flushes_total",
			Help: "Total event batch flushes",
		},
	)

	FlushBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "userpulse_event_flush_batch_size",
			Help:    "Events per flushed batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
		},
	)

	ReasoningCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_reasoning_calls_total",
			Help: "Total reasoning service calls",
		},
		[]string{"task", "status"},
	)

	ReasoningFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_reasoning_fallbacks_total",
			Help: "Total reasoning failures replaced by fallback values",
		},
		[]string{"site"},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "userpulse_analysis_duration_seconds",
			Help:    "Behavior analysis duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)

	PredictionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_predictions_generated_total",
			Help: "Total predictions generated per model type",
		},
		[]string{"model_type"},
	)

	InsightsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_insights_generated_total",
			Help: "Total insights generated per type",
		},
		[]string{"type", "priority"},
	)

	InsightsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "userpulse_insights_expired_total",
			Help: "Total insights removed by the expiry sweep",
		},
	)

	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_notifications_dispatched_total",
			Help: "Total notifications dispatched per channel type",
		},
		[]string{"channel_type"},
	)

	NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userpulse_notifications_failed_total",
			Help: "Total notification deliveries that failed",
		},
		[]string{"channel_type"},
	)
)

func Init() {
	prometheus.MustRegister(EventsLogged)
	prometheus.MustRegister(FlushesTotal)
	prometheus.MustRegister(FlushBatchSize)
	prometheus.MustRegister(ReasoningCalls)
	prometheus.MustRegister(ReasoningFallbacks)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(PredictionsGenerated)
	prometheus.MustRegister(InsightsGenerated)
	prometheus.MustRegister(InsightsExpired)
	prometheus.MustRegister(NotificationsDispatched)
	prometheus.MustRegister(NotificationsFailed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
