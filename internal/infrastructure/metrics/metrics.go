package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Chat streams
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "streams_total",
			Help:      "Completion streams by terminal outcome",
		},
		[]string{"outcome"},
	)

	StreamChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "stream_chunks_total",
			Help:      "Content chunks forwarded to clients",
		},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "active_streams",
			Help:      "Currently active streaming connections",
		},
	)

	// Token counters
	TokensPromptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "tokens_prompt_total",
			Help:      "Total prompt tokens consumed",
		},
		[]string{"model"},
	)

	TokensCompletionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "tokens_completion_total",
			Help:      "Total completion tokens generated",
		},
		[]string{"model"},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	ConversationsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "conversations_swept_total",
			Help:      "Soft-deleted conversations purged by the sweep",
		},
	)

	// Speech synthesis
	TTSCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "tts_cache_total",
			Help:      "Audio cache lookups by result",
		},
		[]string{"result"},
	)

	TTSSynthesisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "tts_synthesis_total",
			Help:      "Speech synthesis calls by language and status",
		},
		[]string{"lang", "status"},
	)

	TTSSynthesisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "chat_api",
			Name:      "tts_synthesis_duration_seconds",
			Help:      "Speech synthesis duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"lang"},
	)
)

// RecordRequest records one HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordStream records a completion stream's terminal outcome.
func RecordStream(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	StreamsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokens records token usage for one completion.
func RecordTokens(model string, promptTokens, completionTokens int) {
	TokensPromptTotal.WithLabelValues(model).Add(float64(promptTokens))
	TokensCompletionTotal.WithLabelValues(model).Add(float64(completionTokens))
}

// RecordTTSCache records an audio cache lookup ("hit" or "miss").
func RecordTTSCache(result string) {
	TTSCacheTotal.WithLabelValues(result).Inc()
}

// RecordSynthesis records one synthesis attempt.
func RecordSynthesis(lang, status string, durationSec float64) {
	TTSSynthesisTotal.WithLabelValues(lang, status).Inc()
	if status == "ok" {
		TTSSynthesisDuration.WithLabelValues(lang).Observe(durationSec)
	}
}
