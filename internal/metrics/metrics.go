// Package metrics records bank activity as Prometheus metrics on a private
// registry.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/logging"
	"github.com/lab-banks/banks/internal/model"
)

// Collector implements bank.Recorder.
type Collector struct {
	registry        *prometheus.Registry
	operations      *prometheus.CounterVec
	failures        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	accruals        *prometheus.CounterVec
	pending         *prometheus.GaugeVec
	balance         *prometheus.GaugeVec
	transactionLogs *prometheus.GaugeVec
	mu              sync.Mutex
	logger          *slog.Logger
}

var _ bank.Recorder = (*Collector)(nil)

// NewCollector creates a collector. A nil logger discards.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = logging.Discard()
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_total",
			Help: "Bank operations attempted, by operation",
		}, []string{"op"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_failed_total",
			Help: "Bank operations rejected, by operation and error kind",
		}, []string{"op", "kind"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_notifications_delivered_total",
			Help: "Policy-change notifications delivered to subscribers",
		}, []string{"change"}),
		accruals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_accrual_applications_total",
			Help: "Accrual applications, by outcome",
		}, []string{"outcome"}),
		pending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_pending_accrual",
			Help: "Accrual pending across a bank's accounts",
		}, []string{"bank"}),
		balance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_balance_total",
			Help: "Sum of account balances at a bank, by account kind",
		}, []string{"bank", "kind"}),
		transactionLogs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_transactions_logged",
			Help: "Transactions currently in a bank's log",
		}, []string{"bank"}),
		logger: logger,
	}
}

// Operation counts one attempted operation.
func (c *Collector) Operation(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations.WithLabelValues(op).Inc()
	if err != nil {
		c.failures.WithLabelValues(op, ErrorKind(err)).Inc()
	}
}

// Notified counts delivered notifications.
func (c *Collector) Notified(change model.ChangeKind, delivered int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications.WithLabelValues(string(change)).Add(float64(delivered))
}

// AccrualApplied counts one accrual application.
func (c *Collector) AccrualApplied(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "partial"
	}
	c.accruals.WithLabelValues(outcome).Inc()
}

// ObserveBank sets the gauges describing b's current state.
func (c *Collector) ObserveBank(b *bank.Bank) {
	c.mu.Lock()
	defer c.mu.Unlock()
	label := id.Short(b.ID())
	totals := make(map[model.AccountKind]decimal.Decimal, len(model.AccountKinds))
	for _, ca := range b.Clients() {
		for _, a := range ca.Accounts() {
			totals[a.Kind()] = totals[a.Kind()].Add(a.Balance())
		}
	}
	for _, k := range model.AccountKinds {
		c.balance.WithLabelValues(label, string(k)).Set(totals[k].InexactFloat64())
	}
	c.pending.WithLabelValues(label).Set(b.PendingTotal().InexactFloat64())
	c.transactionLogs.WithLabelValues(label).Set(float64(len(b.Transactions())))
}

// Registry returns the private registry, for tests and exporters.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	c.logger.Debug("metrics written", "families", len(families))
	return nil
}

// ErrorKind maps an error to a short label from its model error kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrBusinessRule):
		return "business_rule"
	default:
		return "other"
	}
}
