package billing

import (
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a new invoice draft is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
	}
}

// InvoiceConfirmedEvent is raised when a draft is confirmed and becomes payable
type InvoiceConfirmedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceConfirmedEvent creates a new InvoiceConfirmedEvent
func NewInvoiceConfirmedEvent(inv *Invoice) *InvoiceConfirmedEvent {
	return &InvoiceConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceConfirmed", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoicePartiallyPaidEvent is raised when a payment covers part of the invoice
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// NewInvoicePartiallyPaidEvent creates a new InvoicePartiallyPaidEvent
func NewInvoicePartiallyPaidEvent(inv *Invoice, amount valueobject.Money, paymentID uuid.UUID) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePartiallyPaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		PaymentID:       paymentID,
		AllocatedAmount: amount.Amount(),
		RemainingAmount: inv.RemainingAmount,
	}
}

// InvoicePaidEvent is raised when the invoice is fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, paymentID uuid.UUID) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		PaymentID:       paymentID,
		TotalAmount:     inv.TotalAmount,
		PaidAt:          paidAt,
	}
}

// InvoiceCancelledEvent is raised when the invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	WasConfirmed  bool            `json:"was_confirmed"`
	Reason        string          `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, wasConfirmed bool) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		WasConfirmed:    wasConfirmed,
		Reason:          inv.CancelReason,
	}
}
