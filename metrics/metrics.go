package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Ledger struct {
	ClicksRecorded prometheus.Counter
	ClicksDropped  prometheus.Counter
	Commissions    *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	ImportRows     *prometheus.CounterVec
	Payouts        *prometheus.CounterVec
	PayoutAmount   prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *Ledger
)

// Default returns the process-wide collectors, registering them on first use.
func Default() *Ledger {
	ledgerOnce.Do(func() {
		ledgerRegistry = New()
		prometheus.MustRegister(
			ledgerRegistry.ClicksRecorded,
			ledgerRegistry.ClicksDropped,
			ledgerRegistry.Commissions,
			ledgerRegistry.Transitions,
			ledgerRegistry.ImportRows,
			ledgerRegistry.Payouts,
			ledgerRegistry.PayoutAmount,
		)
	})
	return ledgerRegistry
}

// New builds unregistered collectors; tests use it to avoid the global registry.
func New() *Ledger {
	return &Ledger{
		ClicksRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "clicks",
			Name:      "recorded_total",
			Help:      "Outbound affiliate clicks persisted to the click ledger.",
		}),
		ClicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "clicks",
			Name:      "dropped_total",
			Help:      "Clicks that failed to persist after the redirect was issued.",
		}),
		Commissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "ledger",
			Name:      "commissions_recorded_total",
			Help:      "Commission record attempts by outcome.",
		}, []string{"network", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "ledger",
			Name:      "transitions_total",
			Help:      "Commission lifecycle transitions by target status and result.",
		}, []string{"to", "result"}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "reconcile",
			Name:      "rows_total",
			Help:      "Committed reconciliation feed rows by outcome.",
		}, []string{"outcome"}),
		Payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "payouts",
			Name:      "requests_total",
			Help:      "Payout requests by result.",
		}, []string{"result"}),
		PayoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewmo",
			Subsystem: "payouts",
			Name:      "paid_minor_units_total",
			Help:      "Commission share marked paid by payouts, in minor currency units.",
		}),
	}
}
