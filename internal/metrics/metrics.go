// Package metrics defines the Prometheus instrumentation of the bot.
//
// The registry is constructed at startup and passed by handle — no
// package-level registration — so tests can run with their own registry
// and the HTTP exposition lives wherever the caller mounts it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChainStatus labels the profit_orders_total counter.
type ChainStatus string

const (
	StatusNew       ChainStatus = "new"
	StatusFilled    ChainStatus = "filled"
	StatusCancelled ChainStatus = "cancelled"
)

// Metrics holds all counters the core increments.
type Metrics struct {
	bookTickerEvents *prometheus.CounterVec
	processedChains  *prometheus.CounterVec
	profitOrders     *prometheus.CounterVec
}

// New creates and registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookTickerEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_ticker_events_total",
				Help: "Received book ticker events",
			},
			[]string{"symbol"},
		),
		processedChains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processed_chains_total",
				Help: "Arbitrage chain evaluations",
			},
			[]string{"symbol_a", "symbol_b", "symbol_c"},
		),
		profitOrders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profit_orders_total",
				Help: "Profitable chain plans by execution status",
			},
			[]string{"symbol_a", "symbol_b", "symbol_c", "status"},
		),
	}

	reg.MustRegister(m.bookTickerEvents, m.processedChains, m.profitOrders)
	return m
}

// BookTickerEvent counts one received top-of-book update.
func (m *Metrics) BookTickerEvent(symbol string) {
	m.bookTickerEvents.WithLabelValues(symbol).Inc()
}

// ProcessedChain counts one evaluation of a cycle.
func (m *Metrics) ProcessedChain(symbols [3]string) {
	m.processedChains.WithLabelValues(symbols[0], symbols[1], symbols[2]).Inc()
}

// ChainStatus counts a plan reaching an execution status.
func (m *Metrics) ChainStatus(symbols [3]string, status ChainStatus) {
	m.profitOrders.WithLabelValues(symbols[0], symbols[1], symbols[2], string(status)).Inc()
}
