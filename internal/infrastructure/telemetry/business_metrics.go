// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the receivables system.
// It tracks invoice issuance, payment collection, and outstanding balances.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	invoiceIssuedTotal    *Counter
	invoiceAmountTotal    *Counter
	paymentCollectedTotal *Counter
	paymentAllocatedTotal *Counter
	paymentSurplusTotal   *Counter

	// Gauge metrics (point-in-time values)
	receivablesOutstanding *Gauge
	invoicesOverdueCount   *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	receivablesProvider ReceivablesMetricsProvider
}

// ReceivablesMetricsProvider provides receivables data for periodic metrics
// collection. This interface allows the telemetry layer to query ledger state
// without depending on the billing domain directly.
type ReceivablesMetricsProvider interface {
	// GetOutstandingTotal returns the total remaining amount across all
	// outstanding invoices.
	GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error)

	// GetOverdueInvoiceCount returns the number of outstanding invoices whose
	// due date has passed.
	GetOverdueInvoiceCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	CollectInterval     time.Duration // Default: 5 minutes
	ReceivablesProvider ReceivablesMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		receivablesProvider: cfg.ReceivablesProvider,
	}

	// Initialize counter metrics
	var err error

	// Invoice metrics
	bm.invoiceIssuedTotal, err = NewCounter(
		cfg.Meter,
		"arl_invoice_issued_total",
		"Total number of invoices confirmed",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"arl_invoice_amount_total",
		"Total confirmed invoice amount in piasters",
		"{piasters}",
	)
	if err != nil {
		return nil, err
	}

	// Payment metrics
	bm.paymentCollectedTotal, err = NewCounter(
		cfg.Meter,
		"arl_payment_collected_total",
		"Total number of payments collected",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAllocatedTotal, err = NewCounter(
		cfg.Meter,
		"arl_payment_allocated_total",
		"Total payment amount allocated to invoices, in piasters",
		"{piasters}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentSurplusTotal, err = NewCounter(
		cfg.Meter,
		"arl_payment_surplus_total",
		"Total payment amount left unallocated, in piasters",
		"{piasters}",
	)
	if err != nil {
		return nil, err
	}

	// Receivables gauge metrics
	bm.receivablesOutstanding, err = NewGauge(
		cfg.Meter,
		"arl_receivables_outstanding",
		"Current total outstanding invoice amount in piasters",
		"{piasters}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoicesOverdueCount, err = NewGauge(
		cfg.Meter,
		"arl_invoices_overdue_count",
		"Number of outstanding invoices past their due date",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Invoice Metrics
// =============================================================================

// RecordInvoiceIssued records an invoice confirmation and its amount.
// Amount is converted to piasters (smallest EGP unit).
func (bm *BusinessMetrics) RecordInvoiceIssued(ctx context.Context, amount decimal.Decimal) {
	bm.invoiceIssuedTotal.Inc(ctx)
	bm.invoiceAmountTotal.Add(ctx, toPiasters(amount))
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPaymentCollected records a collected payment with its allocation split.
// All amounts are converted to piasters (smallest EGP unit).
func (bm *BusinessMetrics) RecordPaymentCollected(ctx context.Context, paymentMethod string, allocated, surplus decimal.Decimal) {
	bm.paymentCollectedTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
	)
	bm.paymentAllocatedTotal.Add(ctx, toPiasters(allocated),
		AttrPaymentMethod.String(paymentMethod),
	)
	if surplus.IsPositive() {
		bm.paymentSurplusTotal.Add(ctx, toPiasters(surplus),
			AttrPaymentMethod.String(paymentMethod),
		)
	}
}

// =============================================================================
// Receivables Metrics
// =============================================================================

// RecordOutstandingTotal records the current total outstanding amount.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOutstandingTotal(ctx context.Context, total decimal.Decimal) {
	bm.receivablesOutstanding.Record(ctx, toPiasters(total))
}

// RecordOverdueCount records the number of overdue invoices.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOverdueCount(ctx context.Context, count int64) {
	bm.invoicesOverdueCount.Record(ctx, count)
}

// toPiasters converts an EGP amount to its smallest unit.
func toPiasters(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects receivables metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectReceivablesMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectReceivablesMetrics(ctx)
		}
	}
}

// collectReceivablesMetrics collects receivables gauge metrics.
func (bm *BusinessMetrics) collectReceivablesMetrics(ctx context.Context) {
	if bm.receivablesProvider == nil {
		bm.logger.Debug("No receivables provider configured, skipping receivables metrics collection")
		return
	}

	outstanding, err := bm.receivablesProvider.GetOutstandingTotal(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding receivables total", zap.Error(err))
	} else {
		bm.RecordOutstandingTotal(ctx, outstanding)
	}

	overdueCount, err := bm.receivablesProvider.GetOverdueInvoiceCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get overdue invoice count", zap.Error(err))
	} else {
		bm.RecordOverdueCount(ctx, overdueCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
