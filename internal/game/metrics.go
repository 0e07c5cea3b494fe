package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "turns_total",
		Help:      "Resolved turns by resulting transition.",
	}, []string{"transition"})

	turnsDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "turns_degraded_total",
		Help:      "Turns that failed and returned the previous session.",
	})

	combatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "combats_total",
		Help:      "Resolved combat encounters by result.",
	}, []string{"result"})

	compactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "compactions_total",
		Help:      "Narrative compactions performed.",
	})

	archiveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "archive_failures_total",
		Help:      "Full narrative archive writes that failed.",
	})

	missionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frontline",
		Subsystem: "game",
		Name:      "missions_ended_total",
		Help:      "Finished missions by outcome.",
	}, []string{"outcome"})
)
