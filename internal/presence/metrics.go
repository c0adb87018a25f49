package presence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	armedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "presence",
		Name:      "armed_total",
		Help:      "Host absence watchers armed.",
	})
	cancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "presence",
		Name:      "cancelled_total",
		Help:      "Host absence watchers cancelled by a host reconnect.",
	})
	expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "presence",
		Name:      "expired_total",
		Help:      "Rooms closed because the host did not return in time.",
	})
)
