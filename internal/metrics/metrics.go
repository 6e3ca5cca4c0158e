// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	segmentAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfall_segment_appends_total",
		Help: "Replay segment append attempts by outcome",
	}, []string{"outcome"}) // outcome=ok|rejected|error

	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockfall_sessions_created_total",
		Help: "Total number of game sessions created",
	})

	matchesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockfall_matches_created_total",
		Help: "Total number of 1v1 matches paired and persisted",
	})

	matchmakingWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockfall_matchmaking_waiting",
		Help: "Whether a player currently occupies the matchmaking slot (0 or 1)",
	})

	listingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockfall_listing_requests_total",
		Help: "Session directory listing requests by order",
	}, []string{"order"}) // order=best|recent

	storeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockfall_store_failures_total",
		Help: "Total number of key-value store operation failures",
	})
)

// RecordAppend records one append attempt with the given outcome.
func RecordAppend(outcome string) {
	segmentAppendsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionCreated increments the created-sessions counter.
func RecordSessionCreated() {
	sessionsCreatedTotal.Inc()
}

// RecordMatchCreated increments the paired-matches counter.
func RecordMatchCreated() {
	matchesCreatedTotal.Inc()
}

// SetMatchmakingWaiting updates the pending-slot occupancy gauge.
func SetMatchmakingWaiting(occupied bool) {
	if occupied {
		matchmakingWaiting.Set(1)
	} else {
		matchmakingWaiting.Set(0)
	}
}

// RecordListing records one directory listing request.
func RecordListing(order string) {
	listingRequestsTotal.WithLabelValues(order).Inc()
}

// RecordStoreFailure increments the store failure counter.
func RecordStoreFailure() {
	storeFailuresTotal.Inc()
}
