package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BlocksProcessed counts blocks the scanner has walked, per chain.
	BlocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_blocks_processed_total",
		Help: "Blocks processed by the deposit scanner",
	}, []string{"chain"})

	// DepositsCredited counts deposits credited to user wallets.
	DepositsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_deposits_credited_total",
		Help: "On-chain deposits credited to the ledger",
	}, []string{"chain", "token"})

	// ScanErrors counts failed scan batches and provider faults.
	ScanErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_errors_total",
		Help: "Scanner batch and provider errors",
	}, []string{"chain"})

	// ScanCursor tracks the last processed block per chain.
	ScanCursor = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scanner_last_processed_block",
		Help: "Persisted scan cursor per chain",
	}, []string{"chain"})

	// GamesResolved counts finished games by kind and outcome.
	GamesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "games_resolved_total",
		Help: "Games reaching a terminal state",
	}, []string{"game", "outcome"})

	// WithdrawalsSubmitted counts withdrawal submissions by final result.
	WithdrawalsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "withdrawals_submitted_total",
		Help: "Withdrawal submissions by result",
	}, []string{"chain", "result"})
)

// Handler serves the prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
