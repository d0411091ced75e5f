package billing

import (
	"context"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter carries list criteria for invoices
type InvoiceFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	Status        *InvoiceStatus
	InvoiceNumber string
	DateFrom      *time.Time
	DateTo        *time.Time
	OverdueOnly   bool
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	// FindByID retrieves an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber retrieves an invoice by its invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindOutstandingByCustomer returns the customer's payable invoices
	// (confirmed or partially paid, remaining amount positive) ordered by
	// invoice date then ID
	FindOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)

	// FindAll retrieves invoices matching the filter with a total count
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)

	// Save persists an invoice (create or update)
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock persists an invoice only if its stored version matches
	// the version the aggregate was loaded with. Returns
	// shared.ErrConcurrencyConflict when another transaction won.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete removes a draft invoice
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByNumber checks whether an invoice number is already taken
	ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// GenerateInvoiceNumber produces the next number, INV-YYYYMMDD-NNNNN
	GenerateInvoiceNumber(ctx context.Context) (string, error)
}

// PaymentFilter carries list criteria for payments
type PaymentFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	PaymentMethod *PaymentMethod
	PaymentNumber string
	DateFrom      *time.Time
	DateTo        *time.Time
	SurplusOnly   bool
}

// PaymentRepository defines persistence operations for payments.
// Payments are written once, together with their allocations, and never
// updated afterwards.
type PaymentRepository interface {
	// FindByID retrieves a payment with its allocations
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByNumber retrieves a payment by its payment number
	FindByNumber(ctx context.Context, paymentNumber string) (*Payment, error)

	// FindByCustomer retrieves a customer's payments, newest first
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter PaymentFilter) ([]*Payment, int64, error)

	// FindAll retrieves payments matching the filter with a total count
	FindAll(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)

	// Create persists a new payment and its allocations
	Create(ctx context.Context, payment *Payment) error

	// FindAllocationsByInvoice returns every allocation made against an invoice
	FindAllocationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentAllocation, error)

	// GeneratePaymentNumber produces the next number, REC-YYYYMMDD-NNNNN
	GeneratePaymentNumber(ctx context.Context) (string, error)
}
