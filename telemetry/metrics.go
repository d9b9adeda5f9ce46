// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatMessagesReceived  prometheus.Counter
	ChatMessagesPersisted prometheus.Counter
	ChatInsertFailures    prometheus.Counter
	SentencesTrained      prometheus.Counter
	GenerationsTotal      prometheus.Counter
	ModelReloads          prometheus.Counter

	// Histograms (seconds)
	TrainingDuration   prometheus.Observer
	GenerationDuration prometheus.Observer

	// Gauges
	ModelVocabularyGauge prometheus.Gauge
	ModelNodesGauge      prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_received_total", Help: "Chat messages seen by the collector"})
		ChatMessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_persisted_total", Help: "Chat messages written to Postgres"})
		ChatInsertFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_insert_failures_total", Help: "Failed chat batch inserts"})
		SentencesTrained = promauto.NewCounter(prometheus.CounterOpts{Name: "chain_sentences_trained_total", Help: "Sentences fed into chains by the trainer"})
		GenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "chain_generations_total", Help: "Generations served (bot and HTTP API)"})
		ModelReloads = promauto.NewCounter(prometheus.CounterOpts{Name: "chain_model_reloads_total", Help: "Model hot reloads performed by the server"})
		TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chain_training_duration_seconds", Help: "Per-model training duration seconds", Buckets: prometheus.DefBuckets})
		GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chain_generation_duration_seconds", Help: "Sample-best generation duration seconds", Buckets: prometheus.DefBuckets})
		ModelVocabularyGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chain_model_vocabulary", Help: "Vocabulary size of the currently loaded model"})
		ModelNodesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chain_model_nodes", Help: "Node count of the currently loaded model"})
	})
}

// SetModelSize records the dimensions of the currently loaded model.
func SetModelSize(vocabulary, nodes int) {
	if ModelVocabularyGauge != nil {
		ModelVocabularyGauge.Set(float64(vocabulary))
	}
	if ModelNodesGauge != nil {
		ModelNodesGauge.Set(float64(nodes))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying id as its correlation id,
// replacing any id already present.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
