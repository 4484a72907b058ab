package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_attempts_total",
			Help: "Chat backend attempts by operation, backend and result",
		},
		[]string{"op", "backend", "result"},
	)

	deliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Chat operations that failed on every backend",
		},
		[]string{"op", "cause"},
	)

	liveFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_live_fallbacks_total",
			Help: "Live subscriptions that fell back to one-shot fetches",
		},
	)
)

func observeAttempt(op, backend string, err error) {
	result := "ok"
	if err != nil {
		result = string(classify(err))
	}
	deliveryAttempts.WithLabelValues(op, backend, result).Inc()
}
