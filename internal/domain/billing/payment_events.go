package billing

import (
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReceivedEvent is raised when a payment is recorded
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// NewPaymentReceivedEvent creates a new PaymentReceivedEvent
func NewPaymentReceivedEvent(p *Payment) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentReceived", "Payment", p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		PaymentDate:     p.PaymentDate,
	}
}

// PaymentAllocatedEvent is raised when part of a payment is attributed to an invoice
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID       `json:"payment_id"`
	PaymentNumber   string          `json:"payment_number"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	SurplusAmount   decimal.Decimal `json:"surplus_amount"`
}

// NewPaymentAllocatedEvent creates a new PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment, allocation *PaymentAllocation) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentAllocated", "Payment", p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       allocation.InvoiceID,
		InvoiceNumber:   allocation.InvoiceNumber,
		AllocatedAmount: allocation.Amount,
		SurplusAmount:   p.SurplusAmount,
	}
}
