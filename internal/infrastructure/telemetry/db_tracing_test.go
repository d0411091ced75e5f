package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type invoiceRecord struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"size:32"`
	CreatedAt     time.Time
}

func tracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoiceRecord{}))
	return db
}

func recordingTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	assert.Equal(t, 200*time.Millisecond, plugin.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", plugin.config.DBSystem)
	assert.False(t, plugin.config.LogFullSQL)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := tracingTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// nothing installed, so a second call is still a no-op
	require.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := tracingTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// duplicate registration collides on callback names
	assert.Error(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_AnnotatesQuerySpans(t *testing.T) {
	db := tracingTestDB(t)
	tp, recorder := recordingTracer(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("billing").Start(context.Background(), "collect-payment")
	db = db.WithContext(ctx)

	invoices := []invoiceRecord{
		{InvoiceNumber: "INV-20260801-00001"},
		{InvoiceNumber: "INV-20260801-00002"},
		{InvoiceNumber: "INV-20260801-00003"},
	}
	require.NoError(t, db.Create(&invoices).Error)
	span.End()

	found := false
	for _, s := range recorder.Ended() {
		for _, attr := range s.Attributes() {
			if attr.Key == "db.rows_affected" && attr.Value.AsInt64() == 3 {
				found = true
			}
		}
	}
	assert.True(t, found, "expected db.rows_affected=3 on a recorded span")
}

func TestDBTracingPlugin_RecordNotFoundIsNotAnError(t *testing.T) {
	db := tracingTestDB(t)
	tp, recorder := recordingTracer(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("billing").Start(context.Background(), "find-invoice")

	var missing invoiceRecord
	err := db.WithContext(ctx).First(&missing, 99999).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	span.End()

	for _, s := range recorder.Ended() {
		assert.NotEqual(t, codes.Error, s.Status().Code,
			"lookup miss must not mark span %q as error", s.Name())
	}
}

func TestDBTracingPlugin_FlagsSlowQueries(t *testing.T) {
	db := tracingTestDB(t)
	tp, recorder := recordingTracer(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		DBSystem:        "sqlite",
		SlowQueryThresh: time.Nanosecond,
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("billing").Start(context.Background(), "list-invoices")

	var all []invoiceRecord
	require.NoError(t, db.WithContext(ctx).Find(&all).Error)
	span.End()

	foundEvent := false
	for _, s := range recorder.Ended() {
		for _, event := range s.Events() {
			if event.Name == "slow_query_warning" {
				foundEvent = true
			}
		}
	}
	assert.True(t, foundEvent, "expected slow_query_warning event with 1ns threshold")
}

func TestDBTracingPlugin_AnnotateSpanWithoutRecordingSpan(t *testing.T) {
	db := tracingTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	// context without an active span must not panic
	db = db.WithContext(context.Background())
	var all []invoiceRecord
	require.NoError(t, db.Find(&all).Error)
	plugin.annotateSpan(db)
}
