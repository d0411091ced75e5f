// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivablesMetricsProvider implements ReceivablesMetricsProvider using GORM.
// It queries the invoices table directly for aggregated metrics.
type GormReceivablesMetricsProvider struct {
	db *gorm.DB
}

// NewGormReceivablesMetricsProvider creates a new GormReceivablesMetricsProvider.
func NewGormReceivablesMetricsProvider(db *gorm.DB) *GormReceivablesMetricsProvider {
	return &GormReceivablesMetricsProvider{db: db}
}

// GetOutstandingTotal returns the total remaining amount across all outstanding invoices.
func (p *GormReceivablesMetricsProvider) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	type result struct {
		Total decimal.Decimal `gorm:"column:total"`
	}

	var r result
	err := p.db.WithContext(ctx).
		Table("invoices").
		Select("COALESCE(SUM(remaining_amount), 0) as total").
		Where("status IN ?", []string{"CONFIRMED", "PARTIALLY_PAID"}).
		Scan(&r).Error
	if err != nil {
		return decimal.Zero, err
	}

	return r.Total, nil
}

// GetOverdueInvoiceCount returns the number of outstanding invoices past their due date.
func (p *GormReceivablesMetricsProvider) GetOverdueInvoiceCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("status IN ?", []string{"CONFIRMED", "PARTIALLY_PAID"}).
		Where("due_date < ?", time.Now()).
		Count(&count).Error

	return count, err
}

// Ensure GormReceivablesMetricsProvider implements ReceivablesMetricsProvider
var _ ReceivablesMetricsProvider = (*GormReceivablesMetricsProvider)(nil)
