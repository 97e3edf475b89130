package topten

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topadel",
		Subsystem: "topten",
		Name:      "remote_attempts_total",
		Help:      "Remote platform request attempts by operation and status class.",
	}, []string{"op", "status"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topadel",
		Subsystem: "topten",
		Name:      "remote_retries_total",
		Help:      "Remote platform retries by operation.",
	}, []string{"op"})
)

func observeAttempt(op, status string) {
	remoteAttempts.WithLabelValues(op, status).Inc()
}

func observeRetry(op string) {
	remoteRetries.WithLabelValues(op).Inc()
}
