package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "topadel_webhook_deliveries_total",
		Help: "Webhook deliveries by outcome.",
	},
	[]string{"outcome"},
)

func observeDelivery(outcome string) {
	deliveriesTotal.WithLabelValues(outcome).Inc()
}
