package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/arledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newBusinessMetrics(t *testing.T, provider telemetry.ReceivablesMetricsProvider) (*telemetry.BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:               mp.Meter("receivables"),
		Logger:              zap.NewNop(),
		ReceivablesProvider: provider,
	})
	require.NoError(t, err)
	return bm, reader
}

func recordedMetricNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
}

func TestBusinessMetrics_RecordInvoiceIssued(t *testing.T) {
	bm, reader := newBusinessMetrics(t, nil)

	bm.RecordInvoiceIssued(context.Background(), decimal.NewFromFloat(199.99))
	bm.RecordInvoiceIssued(context.Background(), decimal.NewFromInt(5000))

	names := recordedMetricNames(t, reader)
	assert.True(t, names["arl_invoice_issued_total"])
	assert.True(t, names["arl_invoice_amount_total"])
}

func TestBusinessMetrics_RecordPaymentCollected(t *testing.T) {
	bm, reader := newBusinessMetrics(t, nil)

	bm.RecordPaymentCollected(context.Background(), "cash", decimal.NewFromInt(500), decimal.Zero)
	bm.RecordPaymentCollected(context.Background(), "bank", decimal.NewFromInt(300), decimal.NewFromInt(50))

	names := recordedMetricNames(t, reader)
	assert.True(t, names["arl_payment_collected_total"])
	assert.True(t, names["arl_payment_allocated_total"])
	assert.True(t, names["arl_payment_surplus_total"], "surplus recorded only when positive")
}

func TestBusinessMetrics_RecordOutstandingAndOverdue(t *testing.T) {
	bm, reader := newBusinessMetrics(t, nil)

	bm.RecordOutstandingTotal(context.Background(), decimal.NewFromInt(12500))
	bm.RecordOverdueCount(context.Background(), 5)

	names := recordedMetricNames(t, reader)
	assert.True(t, names["arl_receivables_outstanding"])
	assert.True(t, names["arl_invoices_overdue_count"])
}

type stubReceivablesProvider struct {
	outstanding  decimal.Decimal
	overdueCount int64
	err          error
}

func (s *stubReceivablesProvider) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	return s.outstanding, s.err
}

func (s *stubReceivablesProvider) GetOverdueInvoiceCount(ctx context.Context) (int64, error) {
	return s.overdueCount, s.err
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubReceivablesProvider{
		outstanding:  decimal.NewFromInt(10000),
		overdueCount: 3,
	}
	bm, reader := newBusinessMetrics(t, provider)

	bm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	bm.Stop()

	names := recordedMetricNames(t, reader)
	assert.True(t, names["arl_receivables_outstanding"])
	assert.True(t, names["arl_invoices_overdue_count"])
}

func TestBusinessMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	bm, _ := newBusinessMetrics(t, nil)

	bm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	bm.Stop()
}

func TestBusinessMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	bm, _ := newBusinessMetrics(t, &stubReceivablesProvider{})

	bm.StartPeriodicCollection(context.Background(), time.Hour)
	bm.StartPeriodicCollection(context.Background(), time.Minute)
	bm.Stop()
}

func TestBusinessMetrics_Stop_Idempotent(t *testing.T) {
	bm, _ := newBusinessMetrics(t, nil)

	bm.Stop()
	bm.Stop()
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{Op: "RecordPaymentCollected", Err: "meter unavailable"}

	assert.Equal(t, "RecordPaymentCollected: meter unavailable", err.Error())
}
