// Package metrics registers the Prometheus collectors for the booking workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reservation outcomes
const (
	OutcomeBooked      = "booked"
	OutcomeSoldOut     = "sold_out"
	OutcomeUnavailable = "unavailable"
	OutcomeContention  = "contention"
	OutcomeError       = "error"
)

// Refund outcomes
const (
	OutcomeRefunded        = "refunded"
	OutcomeAlreadyRefunded = "already_refunded"
	OutcomeNotOwner        = "not_owner"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	reservationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_retries_total",
			Help: "Inventory transactions retried after a transient conflict",
		},
	)

	reservationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reservation_duration_seconds",
			Help:    "Time spent reserving a ticket, including retries",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"outcome"},
	)

	refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund requests by outcome",
		},
		[]string{"outcome"},
	)

	ticketsRedeemed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_redeemed_total",
			Help: "Tickets checked in at the door",
		},
	)
)

// ObserveReservation records one completed reservation attempt
func ObserveReservation(outcome string, started time.Time) {
	reservations.WithLabelValues(outcome).Inc()
	reservationDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func IncReservationRetry() {
	reservationRetries.Inc()
}

func ObserveRefund(outcome string) {
	refunds.WithLabelValues(outcome).Inc()
}

func IncTicketRedeemed() {
	ticketsRedeemed.Inc()
}
