package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod says how the money arrived. The lowercase strings are the
// wire and storage representation.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodBank   PaymentMethod = "bank"   // bank transfer
	PaymentMethodCheck  PaymentMethod = "check"  // check/cheque
	PaymentMethodCredit PaymentMethod = "credit" // customer credit
)

// ParsePaymentMethod normalizes a client-supplied method string. The result
// still needs an IsValid check.
func ParsePaymentMethod(s string) PaymentMethod {
	return PaymentMethod(strings.ToLower(s))
}

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBank,
		PaymentMethodCheck, PaymentMethodCredit:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// AllPaymentMethods returns all valid payment methods
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash, PaymentMethodCard, PaymentMethodBank,
		PaymentMethodCheck, PaymentMethodCredit,
	}
}

// PaymentAllocation records the portion of a payment applied to one invoice.
// A payment holds at most one allocation per invoice.
type PaymentAllocation struct {
	ID            uuid.UUID       `json:"id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"` // Denormalized for display
	Amount        decimal.Decimal `json:"amount"`
	AllocatedAt   time.Time       `json:"allocated_at"`
}

// NewPaymentAllocation creates a new payment allocation
func NewPaymentAllocation(paymentID, invoiceID uuid.UUID, invoiceNumber string, amount valueobject.Money) *PaymentAllocation {
	return &PaymentAllocation{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		Amount:        amount.Amount(),
		AllocatedAt:   time.Now(),
	}
}

// GetAmountMoney returns the amount as Money value object
func (a *PaymentAllocation) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(a.Amount)
}

// Payment is the aggregate root recording money received from a customer.
// It is created once by the collection flow together with its allocations
// and never edited afterwards. SurplusAmount is the portion not attributed
// to any invoice.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber   string              `json:"payment_number"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	CustomerName    string              `json:"customer_name"`
	PaymentDate     time.Time           `json:"payment_date"`
	Amount          decimal.Decimal     `json:"amount"`
	AllocatedAmount decimal.Decimal     `json:"allocated_amount"`
	SurplusAmount   decimal.Decimal     `json:"surplus_amount"`
	PaymentMethod   PaymentMethod       `json:"payment_method"`
	Reference       string              `json:"reference"`
	Notes           string              `json:"notes"`
	Allocations     []PaymentAllocation `json:"allocations"`
}

// NewPayment creates a new payment with no allocations yet
func NewPayment(
	paymentNumber string,
	customerID uuid.UUID,
	customerName string,
	amount valueobject.Money,
	paymentMethod PaymentMethod,
	paymentDate time.Time,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if len(paymentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		PaymentDate:       paymentDate,
		Amount:            amount.Amount(),
		AllocatedAmount:   decimal.Zero,
		SurplusAmount:     amount.Amount(),
		PaymentMethod:     paymentMethod,
		Allocations:       make([]PaymentAllocation, 0),
	}

	p.AddDomainEvent(NewPaymentReceivedEvent(p))

	return p, nil
}

// AllocateToInvoice attributes part or all of the payment to an invoice.
// Returns the allocation record created.
func (p *Payment) AllocateToInvoice(
	invoiceID uuid.UUID,
	invoiceNumber string,
	amount valueobject.Money,
) (*PaymentAllocation, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(p.UnallocatedAmount()) {
		return nil, shared.NewDomainError("EXCEEDS_UNALLOCATED",
			fmt.Sprintf("Allocation %s exceeds unallocated amount %s",
				amount.StringFixed(2), p.UnallocatedAmount().StringFixed(2)))
	}

	// One allocation per invoice per payment
	for _, alloc := range p.Allocations {
		if alloc.InvoiceID == invoiceID {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED", fmt.Sprintf("Already allocated to invoice %s", invoiceNumber))
		}
	}

	allocation := NewPaymentAllocation(p.ID, invoiceID, invoiceNumber, amount)
	p.Allocations = append(p.Allocations, *allocation)

	p.AllocatedAmount = p.AllocatedAmount.Add(amount.Amount())
	p.SurplusAmount = p.Amount.Sub(p.AllocatedAmount)

	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentAllocatedEvent(p, allocation))

	return allocation, nil
}

// SetReference sets the payment reference (bank txn, check number)
func (p *Payment) SetReference(reference string) error {
	if len(reference) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 100 characters")
	}
	p.Reference = reference
	return nil
}

// SetNotes sets the notes
func (p *Payment) SetNotes(notes string) {
	p.Notes = notes
}

// Helper methods

// GetAmountMoney returns total amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(p.Amount)
}

// GetAllocatedAmountMoney returns allocated amount as Money
func (p *Payment) GetAllocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(p.AllocatedAmount)
}

// GetSurplusAmountMoney returns the surplus as Money
func (p *Payment) GetSurplusAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(p.SurplusAmount)
}

// UnallocatedAmount returns the amount not yet attributed to any invoice
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedAmount)
}

// IsFullyAllocated returns true if the whole amount has been allocated
func (p *Payment) IsFullyAllocated() bool {
	return p.UnallocatedAmount().IsZero()
}

// HasSurplus returns true if part of the payment remains unattributed
func (p *Payment) HasSurplus() bool {
	return p.SurplusAmount.IsPositive()
}

// AllocationCount returns the number of allocations
func (p *Payment) AllocationCount() int {
	return len(p.Allocations)
}

// GetAllocationByInvoiceID returns the allocation for a specific invoice
func (p *Payment) GetAllocationByInvoiceID(invoiceID uuid.UUID) *PaymentAllocation {
	for i := range p.Allocations {
		if p.Allocations[i].InvoiceID == invoiceID {
			return &p.Allocations[i]
		}
	}
	return nil
}
