package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AssessmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "moderation_assessment_duration_sec",
	Help:    "Duration of content assessment API calls",
	Buckets: prometheus.DefBuckets,
})

var AssessmentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_assessment_count",
	Help: "Number of content assessment API calls, by HTTP status code or failure class",
}, []string{"status"})

var PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_pipeline_outcomes_total",
	Help: "Moderation pipeline results, by entry point and outcome",
}, []string{"source", "outcome"})

var EnforcementActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_enforcement_actions_total",
	Help: "Content visibility changes applied or reverted, by action",
}, []string{"action", "direction"})

var QueueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_queue_enqueued_total",
	Help: "Review queue entries created, by queue type and priority",
}, []string{"queue_type", "priority"})

var BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "moderation_assessment_breaker_state",
	Help: "Assessment circuit breaker state (0 closed, 1 half-open, 2 open)",
}, []string{"name"})

var KafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_kafka_messages_total",
	Help: "Content events consumed from Kafka, by result",
}, []string{"result"})
