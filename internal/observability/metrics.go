// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	AssetsDetected *prometheus.CounterVec
	AssetsSaved    *prometheus.CounterVec
	AssetsSkipped  prometheus.Counter
	ScanErrors     *prometheus.CounterVec

	// News metrics
	NewsFetched      *prometheus.CounterVec
	NewsSaved        prometheus.Counter
	NewsSkipped      prometheus.Counter
	SentimentLabeled *prometheus.CounterVec
	LivefeedBuffered prometheus.Gauge
	LivefeedDropped  prometheus.Counter

	// Publish metrics
	MessagesSent prometheus.Counter
	PublishSent  *prometheus.CounterVec
	SendFailures prometheus.Counter
	AlreadySent  prometheus.Counter

	// Markets metrics
	APICallLatency    *prometheus.HistogramVec
	SnapshotsRecorded prometheus.Counter

	// Cycle metrics
	CycleRunsTotal *prometheus.CounterVec
	CycleDuration  *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulCycle *prometheus.GaugeVec
	UptimeSeconds       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launch_radar"
	}

	return &Metrics{
		// Scan metrics
		AssetsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "assets_detected_total",
			Help:      "Total number of launch candidates detected by source",
		}, []string{"source"}),
		AssetsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "assets_saved_total",
			Help:      "Total number of assets stored by chain",
		}, []string{"chain"}),
		AssetsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "assets_skipped_total",
			Help:      "Total number of assets skipped as already known",
		}),
		ScanErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "errors_total",
			Help:      "Total number of scan errors by task",
		}, []string{"task"}),

		// News metrics
		NewsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "items_fetched_total",
			Help:      "Total number of news items fetched by source",
		}, []string{"source"}),
		NewsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "items_saved_total",
			Help:      "Total number of news items stored",
		}),
		NewsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "items_skipped_total",
			Help:      "Total number of news items skipped as duplicates",
		}),
		SentimentLabeled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "sentiment_labeled_total",
			Help:      "Total number of headlines labeled by sentiment",
		}, []string{"label"}),
		LivefeedBuffered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "livefeed_buffered",
			Help:      "Current number of items in the livefeed buffer",
		}),
		LivefeedDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "livefeed_dropped_total",
			Help:      "Total number of livefeed items dropped on overflow",
		}),

		// Publish metrics
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "messages_sent_total",
			Help:      "Total number of messages delivered",
		}),
		PublishSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "sent_total",
			Help:      "Total number of publications by kind and destination class",
		}, []string{"kind", "class"}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "send_failures_total",
			Help:      "Total number of failed sends",
		}),
		AlreadySent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "already_sent_total",
			Help:      "Total number of items skipped as already published",
		}),

		// Markets metrics
		APICallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "markets",
			Name:      "api_call_latency_seconds",
			Help:      "External API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		SnapshotsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "markets",
			Name:      "snapshots_recorded_total",
			Help:      "Total number of market snapshots appended",
		}),

		// Cycle metrics
		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of cycle runs by task and status",
		}, []string{"task", "status"}),
		CycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Cycle execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"task"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle by task",
		}, []string{"task"}),
		UptimeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAssetsDetected adds detected launch candidates for a source.
func RecordAssetsDetected(source string, count int) {
	DefaultMetrics.AssetsDetected.WithLabelValues(source).Add(float64(count))
}

// RecordAssetsSaved adds stored assets for a chain.
func RecordAssetsSaved(chain string, count int) {
	DefaultMetrics.AssetsSaved.WithLabelValues(chain).Add(float64(count))
}

// RecordAssetsSkipped adds already-known skips.
func RecordAssetsSkipped(count int) {
	DefaultMetrics.AssetsSkipped.Add(float64(count))
}

// RecordScanError increments the scan error counter for a task.
func RecordScanError(task string) {
	DefaultMetrics.ScanErrors.WithLabelValues(task).Inc()
}

// RecordNewsFetched adds fetched items for a source.
func RecordNewsFetched(source string, count int) {
	DefaultMetrics.NewsFetched.WithLabelValues(source).Add(float64(count))
}

// RecordNewsSaved adds stored news items.
func RecordNewsSaved(count int) {
	DefaultMetrics.NewsSaved.Add(float64(count))
}

// RecordNewsSkipped adds news duplicate skips.
func RecordNewsSkipped(count int) {
	DefaultMetrics.NewsSkipped.Add(float64(count))
}

// RecordSentiment increments the sentiment label counter.
func RecordSentiment(label string) {
	DefaultMetrics.SentimentLabeled.WithLabelValues(label).Inc()
}

// UpdateLivefeedBuffer updates the livefeed buffer gauge.
func UpdateLivefeedBuffer(size int) {
	DefaultMetrics.LivefeedBuffered.Set(float64(size))
}

// RecordLivefeedDropped adds newly observed overflow drops to the counter.
func RecordLivefeedDropped(count int) {
	DefaultMetrics.LivefeedDropped.Add(float64(count))
}

// RecordPublished records one delivered publication.
func RecordPublished(kind, class string) {
	DefaultMetrics.MessagesSent.Inc()
	DefaultMetrics.PublishSent.WithLabelValues(kind, class).Inc()
}

// RecordSendFailure increments the failed send counter.
func RecordSendFailure() {
	DefaultMetrics.SendFailures.Inc()
}

// RecordAlreadySent increments the already-published skip counter.
func RecordAlreadySent() {
	DefaultMetrics.AlreadySent.Inc()
}

// RecordAPILatency records external API call latency.
func RecordAPILatency(service string, seconds float64) {
	DefaultMetrics.APICallLatency.WithLabelValues(service).Observe(seconds)
}

// RecordSnapshots adds appended market snapshot observations.
func RecordSnapshots(count int) {
	DefaultMetrics.SnapshotsRecorded.Add(float64(count))
}

// RecordCycle records one cycle run.
func RecordCycle(task, status string, durationSeconds float64) {
	DefaultMetrics.CycleRunsTotal.WithLabelValues(task, status).Inc()
	DefaultMetrics.CycleDuration.WithLabelValues(task).Observe(durationSeconds)
}

// MarkCycleSuccess updates the last successful cycle timestamp for a task.
func MarkCycleSuccess(task string, unixSeconds int64) {
	DefaultMetrics.LastSuccessfulCycle.WithLabelValues(task).Set(float64(unixSeconds))
}

// SetUptime updates the process uptime gauge.
func SetUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Set(seconds)
}
