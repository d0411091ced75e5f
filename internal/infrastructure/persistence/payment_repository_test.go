package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPaymentRepository creates a GormPaymentRepository with a mocked SQL connection
func newMockPaymentRepository(t *testing.T) (*GormPaymentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentRepository(gormDB), mock, mockDB
}

func TestGormPaymentRepository_FindByID(t *testing.T) {
	t.Run("loads payment with allocations", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		paymentID := uuid.New()
		customerID := uuid.New()
		invoiceID := uuid.New()

		paymentRows := sqlmock.NewRows([]string{
			"id", "version", "payment_number", "customer_id", "customer_name",
			"amount", "allocated_amount", "surplus_amount", "payment_method",
		}).AddRow(
			paymentID, 1, "REC-20250101-00001", customerID, "Test Customer",
			decimal.NewFromInt(300), decimal.NewFromInt(250), decimal.NewFromInt(50), "cash",
		)

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$1`).
			WithArgs(paymentID, 1).
			WillReturnRows(paymentRows)

		allocationRows := sqlmock.NewRows([]string{
			"id", "payment_id", "invoice_id", "invoice_number", "amount", "allocated_at",
		}).AddRow(
			uuid.New(), paymentID, invoiceID, "INV-20250101-00001", decimal.NewFromInt(250), time.Now(),
		)

		mock.ExpectQuery(`SELECT \* FROM "payment_allocations" WHERE "payment_allocations"\."payment_id" = \$1`).
			WithArgs(paymentID).
			WillReturnRows(allocationRows)

		payment, err := repo.FindByID(context.Background(), paymentID)
		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, "REC-20250101-00001", payment.PaymentNumber)
		assert.Equal(t, billing.PaymentMethodCash, payment.PaymentMethod)
		require.Len(t, payment.Allocations, 1)
		assert.Equal(t, invoiceID, payment.Allocations[0].InvoiceID)
		assert.True(t, payment.SurplusAmount.Equal(decimal.NewFromInt(50)))
	})

	t.Run("returns nil when payment does not exist", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		paymentID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "payments"`).
			WithArgs(paymentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		payment, err := repo.FindByID(context.Background(), paymentID)
		require.NoError(t, err)
		assert.Nil(t, payment)
	})
}

func TestGormPaymentRepository_FindAllocationsByInvoice(t *testing.T) {
	t.Run("returns allocations ordered by time", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "payment_id", "invoice_id", "invoice_number", "amount", "allocated_at",
		}).
			AddRow(uuid.New(), uuid.New(), invoiceID, "INV-20250101-00001", decimal.NewFromInt(100), time.Now().Add(-time.Hour)).
			AddRow(uuid.New(), uuid.New(), invoiceID, "INV-20250101-00001", decimal.NewFromInt(50), time.Now())

		mock.ExpectQuery(`SELECT \* FROM "payment_allocations" WHERE invoice_id = \$1 ORDER BY allocated_at ASC`).
			WithArgs(invoiceID).
			WillReturnRows(rows)

		allocations, err := repo.FindAllocationsByInvoice(context.Background(), invoiceID)
		require.NoError(t, err)
		require.Len(t, allocations, 2)
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(100)))
	})
}

func TestGormPaymentRepository_GeneratePaymentNumber(t *testing.T) {
	today := time.Now().Format("20060102")

	t.Run("starts at 1 for a fresh day", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "payment_number" FROM "payments" WHERE payment_number LIKE \$1`).
			WithArgs(fmt.Sprintf("REC-%s-%%", today), 1).
			WillReturnRows(sqlmock.NewRows([]string{"payment_number"}))

		number, err := repo.GeneratePaymentNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("REC-%s-00001", today), number)
	})

	t.Run("continues the daily sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "payment_number" FROM "payments" WHERE payment_number LIKE \$1`).
			WithArgs(fmt.Sprintf("REC-%s-%%", today), 1).
			WillReturnRows(sqlmock.NewRows([]string{"payment_number"}).
				AddRow(fmt.Sprintf("REC-%s-00012", today)))

		number, err := repo.GeneratePaymentNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("REC-%s-00013", today), number)
	})
}

func TestGormPaymentRepository_Create(t *testing.T) {
	newPayment := func(t *testing.T) *billing.Payment {
		t.Helper()
		p, err := billing.NewPayment("REC-20250101-00001", uuid.New(), "Test Customer",
			valueobject.NewMoneyEGP(decimal.NewFromInt(300)), billing.PaymentMethodCash, time.Now())
		require.NoError(t, err)
		return p
	}

	t.Run("persists payment", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		// gorm's postgres dialect inserts via Query, fetching zero-valued
		// defaulted columns back through RETURNING
		mock.ExpectQuery(`INSERT INTO "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"allocated_amount"}).AddRow(decimal.Zero))

		require.NoError(t, repo.Create(context.Background(), newPayment(t)))
	})

	t.Run("duplicate payment number becomes a retryable conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO "payments"`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_payment_number_key"})

		err := repo.Create(context.Background(), newPayment(t))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO "payments"`).
			WillReturnError(&pgconn.PgError{Code: "53300"})

		err := repo.Create(context.Background(), newPayment(t))
		require.Error(t, err)

		var domainErr *shared.DomainError
		assert.False(t, errors.As(err, &domainErr))
	})
}

func TestGormPaymentRepository_FindAll(t *testing.T) {
	t.Run("filters on surplus only", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "payments" WHERE surplus_amount > 0`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		paymentID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "version", "payment_number", "customer_id", "customer_name",
			"amount", "allocated_amount", "surplus_amount", "payment_method",
		}).AddRow(
			paymentID, 1, "REC-20250101-00002", uuid.New(), "Test Customer",
			decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100), "bank",
		)

		mock.ExpectQuery(`SELECT \* FROM "payments" WHERE surplus_amount > 0`).
			WillReturnRows(rows)

		mock.ExpectQuery(`SELECT \* FROM "payment_allocations"`).
			WithArgs(paymentID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		filter := billing.PaymentFilter{SurplusOnly: true}
		payments, total, err := repo.FindAll(context.Background(), filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, payments, 1)
		assert.True(t, payments[0].HasSurplus())
	})
}
