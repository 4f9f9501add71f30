package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_published_total",
			Help: "Events successfully written to Kafka, by topic.",
		},
		[]string{"topic"},
	)

	producerFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_failed_total",
			Help: "Events that could not be written to Kafka, by topic.",
		},
		[]string{"topic"},
	)
)
