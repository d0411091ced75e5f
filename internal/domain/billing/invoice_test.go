package billing

import (
	"testing"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func newTestInvoice(t *testing.T, total string) *Invoice {
	t.Helper()
	amount, err := valueobject.NewMoneyEGPFromString(total)
	require.NoError(t, err)
	inv, err := NewInvoice("INV-20260801-00001", uuid.New(), "Cairo Trading Co", time.Now(), nil, amount)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("should create invoice in draft status", func(t *testing.T) {
		inv := newTestInvoice(t, "1500.00")

		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("1500.00")))
		assert.True(t, inv.PaidAmount.IsZero())
		assert.True(t, inv.RemainingAmount.Equal(inv.TotalAmount))
		assert.Equal(t, 1, inv.Version)
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("should reject non-positive total", func(t *testing.T) {
		_, err := NewInvoice("INV-1", uuid.New(), "Cairo Trading Co", time.Now(), nil, valueobject.ZeroEGP())

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_AMOUNT", domainErr.Code)
	})

	t.Run("should reject due date before invoice date", func(t *testing.T) {
		invoiceDate := time.Now()
		dueDate := invoiceDate.AddDate(0, 0, -7)
		amount := valueobject.NewMoneyEGP(decimal.NewFromInt(100))

		_, err := NewInvoice("INV-1", uuid.New(), "Cairo Trading Co", invoiceDate, &dueDate, amount)

		require.Error(t, err)
		assertDomainCode(t, err, "INVALID_DUE_DATE")
	})

	t.Run("should reject empty customer", func(t *testing.T) {
		amount := valueobject.NewMoneyEGP(decimal.NewFromInt(100))
		_, err := NewInvoice("INV-1", uuid.Nil, "Cairo Trading Co", time.Now(), nil, amount)
		assert.Error(t, err)
	})
}

func TestInvoiceConfirm(t *testing.T) {
	t.Run("should confirm draft invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1500.00")

		err := inv.Confirm()

		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusConfirmed, inv.Status)
		assert.NotNil(t, inv.ConfirmedAt)
		assert.Equal(t, 2, inv.Version)
	})

	t.Run("should not confirm twice", func(t *testing.T) {
		inv := newTestInvoice(t, "1500.00")
		require.NoError(t, inv.Confirm())

		err := inv.Confirm()

		require.Error(t, err)
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("should not confirm cancelled invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1500.00")
		require.NoError(t, inv.Cancel("created by mistake"))

		err := inv.Confirm()
		assert.Error(t, err)
	})
}

func TestInvoiceApplyPayment(t *testing.T) {
	t.Run("partial payment moves invoice to partially paid", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())

		err := inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(400)), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
		assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(400)))
		assert.True(t, inv.RemainingAmount.Equal(decimal.NewFromInt(600)))
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("full payment moves invoice to paid", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())

		err := inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(1000)), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.RemainingAmount.IsZero())
		assert.NotNil(t, inv.PaidAt)
		assert.False(t, inv.IsOutstanding())
	})

	t.Run("two partial payments settle the invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())

		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.RequireFromString("250.50")), uuid.New()))
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.RequireFromString("749.50")), uuid.New()))

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.PaidAmount.Equal(inv.TotalAmount))
	})

	t.Run("should reject amount above remaining", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(800)), uuid.New()))

		err := inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(300)), uuid.New())

		require.Error(t, err)
		assertDomainCode(t, err, "INSUFFICIENT_REMAINING")
		assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(800)))
	})

	t.Run("should reject payment on draft invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")

		err := inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(100)), uuid.New())

		require.Error(t, err)
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("should reject non-positive amount", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())

		err := inv.ApplyPayment(valueobject.ZeroEGP(), uuid.New())
		assert.Error(t, err)
	})
}

func TestInvoiceCancel(t *testing.T) {
	t.Run("should cancel draft invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")

		err := inv.Cancel("duplicate entry")

		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
		assert.Equal(t, "duplicate entry", inv.CancelReason)
		assert.NotNil(t, inv.CancelledAt)
	})

	t.Run("should cancel confirmed invoice without payments", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())

		err := inv.Cancel("customer returned goods")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})

	t.Run("should not cancel invoice with payments", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(100)), uuid.New()))

		err := inv.Cancel("too late")

		require.Error(t, err)
		assertDomainCode(t, err, "HAS_PAYMENTS")
	})

	t.Run("should not cancel paid invoice", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		require.NoError(t, inv.Confirm())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyEGP(decimal.NewFromInt(1000)), uuid.New()))

		err := inv.Cancel("too late")
		assert.Error(t, err)
	})

	t.Run("should require a reason", func(t *testing.T) {
		inv := newTestInvoice(t, "1000.00")
		err := inv.Cancel("")
		assert.Error(t, err)
	})
}

func TestInvoiceStatus(t *testing.T) {
	t.Run("CanApplyPayment", func(t *testing.T) {
		assert.False(t, InvoiceStatusDraft.CanApplyPayment())
		assert.True(t, InvoiceStatusConfirmed.CanApplyPayment())
		assert.True(t, InvoiceStatusPartiallyPaid.CanApplyPayment())
		assert.False(t, InvoiceStatusPaid.CanApplyPayment())
		assert.False(t, InvoiceStatusCancelled.CanApplyPayment())
	})

	t.Run("IsTerminal", func(t *testing.T) {
		assert.True(t, InvoiceStatusPaid.IsTerminal())
		assert.True(t, InvoiceStatusCancelled.IsTerminal())
		assert.False(t, InvoiceStatusConfirmed.IsTerminal())
	})
}

func TestInvoiceOverdue(t *testing.T) {
	t.Run("confirmed invoice past due date is overdue", func(t *testing.T) {
		invoiceDate := time.Now().AddDate(0, 0, -30)
		dueDate := time.Now().AddDate(0, 0, -10)
		amount := valueobject.NewMoneyEGP(decimal.NewFromInt(500))
		inv, err := NewInvoice("INV-1", uuid.New(), "Cairo Trading Co", invoiceDate, &dueDate, amount)
		require.NoError(t, err)
		require.NoError(t, inv.Confirm())

		assert.True(t, inv.IsOverdue())
		assert.GreaterOrEqual(t, inv.DaysOverdue(), 9)
	})

	t.Run("invoice without due date is never overdue", func(t *testing.T) {
		inv := newTestInvoice(t, "500.00")
		require.NoError(t, inv.Confirm())
		assert.False(t, inv.IsOverdue())
	})
}
