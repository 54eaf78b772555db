package duo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duo_rooms_created_total",
		Help: "Number of duo rooms created.",
	})
	roomsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duo_rooms_swept_total",
		Help: "Number of idle waiting rooms removed by the GC sweeper.",
	})
	answersRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duo_answers_recorded_total",
		Help: "Number of answers recorded across all duo matches.",
	})
	matchesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duo_matches_finished_total",
		Help: "Number of duo matches that reached the finished state.",
	})
)
