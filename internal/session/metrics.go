package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "rooms_created_total",
		Help:      "Rooms created over HTTP.",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Session phase transitions by target phase.",
	}, []string{"phase"})

	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "answers_total",
		Help:      "Answer submissions by outcome.",
	}, []string{"result"})

	frameErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "frame_errors_total",
		Help:      "Inbound frames answered with an error frame, by error code.",
	}, []string{"code"})

	archiveFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "archive_failures_total",
		Help:      "Failed archive writes by stage.",
	}, []string{"stage"})

	revokeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "revoke_failures_total",
		Help:      "Room codes that could not be revoked at session end.",
	})

	answerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizrooms",
		Subsystem: "session",
		Name:      "answer_elapsed_seconds",
		Help:      "Time from question start to accepted answer.",
		Buckets:   prometheus.LinearBuckets(1, 2, 15),
	})
)
