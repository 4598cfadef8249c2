package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation metrics - Track runs and their two passes
var (
	ReconciliationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundsync_reconciliation_runs_total",
			Help: "Total number of reconciliation runs by result",
		},
		[]string{"result"},
	)

	ReconciliationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fundsync_reconciliation_duration_seconds",
		Help:    "Time taken by a full reconciliation run",
		Buckets: prometheus.DefBuckets,
	})

	CampaignsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundsync_campaigns_settled_total",
			Help: "Total number of pending campaign submissions settled by outcome",
		},
		[]string{"outcome"},
	)

	CampaignsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundsync_campaigns_released_total",
		Help: "Total number of campaigns whose pooled funds were released to the owner",
	})

	RefundsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundsync_refunds_issued_total",
			Help: "Total number of refund calls by result",
		},
		[]string{"result"},
	)

	RefundFanoutSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fundsync_refund_fanout_size",
		Help:    "Number of concurrent refund calls issued per expired campaign",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})
)

// State metrics - Track current system state
var (
	CurrentCheckpoint = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fundsync_current_checkpoint",
		Help: "Last observed ledger checkpoint tip",
	})

	PendingCampaigns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fundsync_pending_campaigns",
		Help: "Number of mirror campaigns awaiting submission settlement",
	})
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundsync_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
