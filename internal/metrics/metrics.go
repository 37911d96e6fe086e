// Package metrics exposes Prometheus metrics for the daily signal job.
// Metrics live on a private registry so that tests and repeated runs in one
// process do not collide; they can be pushed to a Pushgateway at job end or
// scraped through Server while the job runs.
package metrics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "dailysignal"

// Metrics holds all Prometheus metrics for the job.
type Metrics struct {
	reg *prometheus.Registry

	TickersProcessed prometheus.Counter
	TickersSkipped   *prometheus.CounterVec // labels: reason
	SignalsTotal     *prometheus.CounterVec // labels: action
	NotifyFailures   prometheus.Counter
	DeliveryFailures *prometheus.CounterVec // labels: target

	FeatureDur prometheus.Histogram
	TrainDur   prometheus.Histogram
	FetchDur   prometheus.Histogram

	ProbUp           *prometheus.GaugeVec // labels: ticker
	TrainingExamples *prometheus.GaugeVec // labels: ticker
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Gauge

	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		TickersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickers_processed_total",
			Help:      "Tickers that produced a signal",
		}),
		TickersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickers_skipped_total",
			Help:      "Tickers skipped, by reason",
		}, []string{"reason"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals produced, by action",
		}, []string{"action"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Signal notifications that could not be delivered",
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Failed end-of-run deliveries, by target",
		}, []string{"target"}),

		FeatureDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_duration_seconds",
			Help:      "Feature computation latency per ticker",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		TrainDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_duration_seconds",
			Help:      "Model training and prediction latency per ticker",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Quote source fetch and merge latency per ticker",
			Buckets:   prometheus.DefBuckets,
		}),

		ProbUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prob_up",
			Help:      "Predicted probability of a next-session rise",
		}, []string{"ticker"}),
		TrainingExamples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_examples",
			Help:      "Windowed training examples used for the last model",
		}, []string{"ticker"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	m.reg.MustRegister(
		m.TickersProcessed,
		m.TickersSkipped,
		m.SignalsTotal,
		m.NotifyFailures,
		m.DeliveryFailures,
		m.FeatureDur,
		m.TrainDur,
		m.FetchDur,
		m.ProbUp,
		m.TrainingExamples,
		m.LastRunTimestamp,
		m.RunDuration,
		m.RedisCircuitBreakerState,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the registry holding the job metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(started, finished time.Time) {
	m.RunDuration.Set(finished.Sub(started).Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// Push sends the registry to a Pushgateway under job. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics push: %w", err)
	}
	log.Printf("[metrics] pushed to %s (job=%s)", url, job)
	return nil
}
