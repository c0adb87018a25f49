package roomcode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "roomcode",
		Name:      "allocations_total",
		Help:      "Room code allocations by result.",
	}, []string{"result"})

	collisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "roomcode",
		Name:      "collisions_total",
		Help:      "Candidate codes rejected because they were already taken.",
	})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "roomcode",
		Name:      "client_fallbacks_total",
		Help:      "Codes generated locally because the allocator service was unreachable.",
	})
)
