// Package metrics 回传流水线的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postbacks_received_total",
		Help: "Inbound postbacks by partner key.",
	}, []string{"partner"})

	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postback_pipeline_total",
		Help: "Terminal pipeline state per processed postback.",
	}, []string{"state"})

	Forwards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postback_forwards_total",
		Help: "Forwarded postbacks by outcome.",
	}, []string{"outcome"})

	ForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "postback_forward_duration_seconds",
		Help:    "Time spent delivering one forwarded postback, retries included.",
		Buckets: prometheus.DefBuckets,
	})

	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicks_recorded_total",
		Help: "Recorded clicks by fraud status.",
	}, []string{"fraud_status"})
)
