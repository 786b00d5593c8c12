package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCommitted counts committed ledger transactions by type.
	TransactionsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_ledger",
		Name:      "transactions_committed_total",
		Help:      "Committed stock transactions by type.",
	}, []string{"type"})

	TransactionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_ledger",
		Name:      "transactions_deleted_total",
		Help:      "Deleted stock transactions (stock reversed).",
	})

	// StockAdjustments counts reconciliation attempts by result (applied, failed).
	StockAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_ledger",
		Name:      "stock_adjustments_total",
		Help:      "Atomic stock map adjustments by result.",
	}, []string{"result"})

	OversellConfirmations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_ledger",
		Name:      "oversell_confirmations_total",
		Help:      "Exit transactions committed beyond available warehouse stock.",
	})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_ledger",
		Name:      "imports_total",
		Help:      "Backup imports by result.",
	}, []string{"result"})
)
