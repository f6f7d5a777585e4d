package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbridge_submissions_total",
		Help: "Form submissions processed by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=reservation|cancellation, outcome=success|partial|failure|rejected

	meetingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbridge_meetings_created_total",
		Help: "Meetings created upstream by mode",
	}, []string{"mode"}) // mode=live|simulation

	meetingsMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetbridge_meetings_merged_total",
		Help: "Created meetings that merged two or more contiguous slots",
	})

	meetingsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbridge_meetings_cancelled_total",
		Help: "Upstream meeting cancellations by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetbridge_upstream_requests_total",
		Help: "Upstream API calls by operation and outcome",
	}, []string{"operation", "outcome"}) // operation=create|cancel|book|release|list

	ledgerWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetbridge_ledger_write_errors_total",
		Help: "Total number of ledger write failures",
	})
)

func IncSubmission(kind, outcome string) { submissionsTotal.WithLabelValues(kind, outcome).Inc() }

func IncMeetingCreated(simulated, merged bool) {
	mode := "live"
	if simulated {
		mode = "simulation"
	}
	meetingsCreatedTotal.WithLabelValues(mode).Inc()
	if merged {
		meetingsMergedTotal.Inc()
	}
}

func IncMeetingCancelled(outcome string) { meetingsCancelledTotal.WithLabelValues(outcome).Inc() }

func IncUpstreamRequest(operation, outcome string) {
	upstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func IncLedgerWriteError() { ledgerWriteErrors.Inc() }
