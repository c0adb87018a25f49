package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "quizrooms",
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Registered websocket connections by role.",
	}, []string{"role"})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "ws",
		Name:      "broadcasts_total",
		Help:      "Room broadcasts by event type.",
	}, []string{"event"})
)
