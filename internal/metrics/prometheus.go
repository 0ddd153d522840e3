package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medbot_query_duration_seconds",
			Help:    "End-to-end answer latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"query_type"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_query_total",
			Help: "Total number of chat queries processed",
		},
		[]string{"status"},
	)

	ClassifierRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_classifier_rejections_total",
			Help: "Queries refused before retrieval",
		},
		[]string{"reason"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medbot_retrieval_results_count",
			Help:    "Number of chunks returned per similarity search",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	StageFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_stage_fallbacks_total",
			Help: "Times a pipeline stage fell back to its deterministic template",
		},
		[]string{"stage"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medbot_documents_processed_total",
			Help: "Total documents ingested into the knowledge base",
		},
	)

	ChunksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medbot_chunks_total",
			Help: "Chunks currently in the knowledge base",
		},
	)

	EmbeddingsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medbot_embeddings_total",
			Help: "Embeddings currently in the vector index",
		},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medbot_feedback_total",
			Help: "User feedback received",
		},
		[]string{"helpful"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ClassifierRejections)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(StageFallbacks)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(ChunksTotal)
	prometheus.MustRegister(EmbeddingsTotal)
	prometheus.MustRegister(FeedbackTotal)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
