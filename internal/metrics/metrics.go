package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayedTransactions counts meta-transactions relayed by chain and status
	RelayedTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_transactions_total",
			Help: "Total number of relayed transactions",
		},
		[]string{"chain", "status"},
	)

	// RelayDuration tracks end-to-end relay time including confirmation
	RelayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayer_transaction_duration_seconds",
			Help:    "Relay processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"chain"},
	)

	// GasUsed tracks gas consumed per relayed transaction
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayer_gas_used",
			Help:    "Gas used per relayed transaction",
			Buckets: []float64{21000, 50000, 100000, 200000, 350000, 500000},
		},
		[]string{"chain"},
	)

	// GasPolicyRejections counts submissions refused by the gas policy
	GasPolicyRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_gas_policy_rejections_total",
			Help: "Total number of submissions rejected by the gas policy",
		},
		[]string{"chain", "reason"},
	)

	// RewardClaims counts reward claims by outcome
	RewardClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_reward_claims_total",
			Help: "Total number of reward claims",
		},
		[]string{"kind", "status"},
	)

	// RelayerBalance tracks the relayer's native balance per chain
	RelayerBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relayer_balance_wei",
			Help: "Current relayer balance in wei",
		},
		[]string{"chain"},
	)

	// AuthFailures counts rejected signature or token verifications
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_auth_failures_total",
			Help: "Total number of authentication failures",
		},
		[]string{"stage"},
	)
)
