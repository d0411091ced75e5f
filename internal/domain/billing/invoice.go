package billing

import (
	"fmt"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"          // Totals still editable, not payable
	InvoiceStatusConfirmed     InvoiceStatus = "CONFIRMED"      // Totals locked, eligible for payment
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // 0 < paid < total
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // remaining = 0
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"      // Cancelled before any payment
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusConfirmed, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusConfirmed || s == InvoiceStatusPartiallyPaid
}

// Invoice is the aggregate root for a credit invoice owed by a customer.
// Invariant: 0 <= PaidAmount <= TotalAmount and
// RemainingAmount = TotalAmount - PaidAmount at all times.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          InvoiceStatus   `json:"status"`
	Notes           string          `json:"notes"`
	ConfirmedAt     *time.Time      `json:"confirmed_at"`
	PaidAt          *time.Time      `json:"paid_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CancelReason    string          `json:"cancel_reason"`
}

// NewInvoice creates a new invoice in DRAFT status
func NewInvoice(
	invoiceNumber string,
	customerID uuid.UUID,
	customerName string,
	invoiceDate time.Time,
	dueDate *time.Time,
	totalAmount valueobject.Money,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date is required")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if dueDate != nil && dueDate.Before(invoiceDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before invoice date")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		TotalAmount:       totalAmount.Amount(),
		PaidAmount:        decimal.Zero,
		RemainingAmount:   totalAmount.Amount(),
		Status:            InvoiceStatusDraft,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// UpdateTotal changes the invoice total. Only allowed while in DRAFT;
// confirmation locks the totals.
func (inv *Invoice) UpdateTotal(totalAmount valueobject.Money) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Totals can only be changed on a draft invoice")
	}
	if !totalAmount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	inv.TotalAmount = totalAmount.Amount()
	inv.RemainingAmount = totalAmount.Amount()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Confirm moves the invoice from DRAFT to CONFIRMED, locking the totals
// and making it eligible for payment. The caller is responsible for
// raising the customer's receivable balance in the same transaction.
func (inv *Invoice) Confirm() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusConfirmed
	inv.ConfirmedAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceConfirmedEvent(inv))

	return nil
}

// ApplyPayment applies an allocated payment amount to the invoice.
// Returns error if the amount exceeds the remaining amount or the invoice
// is not payable.
func (inv *Invoice) ApplyPayment(amount valueobject.Money, paymentID uuid.UUID) error {
	if !inv.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.RemainingAmount) {
		return shared.NewDomainError("INSUFFICIENT_REMAINING",
			fmt.Sprintf("Allocation %s exceeds remaining amount %s on invoice %s",
				amount.StringFixed(2), inv.RemainingAmount.StringFixed(2), inv.InvoiceNumber))
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}

	inv.PaidAmount = inv.PaidAmount.Add(amount.Amount())
	inv.RemainingAmount = inv.TotalAmount.Sub(inv.PaidAmount)

	if inv.RemainingAmount.IsZero() {
		now := time.Now()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv, paymentID))
	} else {
		inv.Status = InvoiceStatusPartiallyPaid
		inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv, amount, paymentID))
	}

	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Cancel cancels the invoice. Allowed for drafts and for confirmed
// invoices with no payments applied. The caller reverses the customer's
// balance for confirmed invoices in the same transaction.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if inv.PaidAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel invoice with existing payments")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	wasConfirmed := inv.Status == InvoiceStatusConfirmed
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.RemainingAmount = decimal.Zero
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, wasConfirmed))

	return nil
}

// SetDueDate updates the due date
func (inv *Invoice) SetDueDate(dueDate *time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify due date for invoice in terminal state")
	}
	if dueDate != nil && dueDate.Before(inv.InvoiceDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before invoice date")
	}

	inv.DueDate = dueDate
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// SetNotes sets the notes
func (inv *Invoice) SetNotes(notes string) {
	inv.Notes = notes
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// Helper methods

// GetTotalAmountMoney returns total amount as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(inv.TotalAmount)
}

// GetPaidAmountMoney returns paid amount as Money
func (inv *Invoice) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(inv.PaidAmount)
}

// GetRemainingAmountMoney returns remaining amount as Money
func (inv *Invoice) GetRemainingAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEGP(inv.RemainingAmount)
}

// IsOutstanding returns true if the invoice can still receive payments
// and carries a remaining amount
func (inv *Invoice) IsOutstanding() bool {
	return inv.Status.CanApplyPayment() && inv.RemainingAmount.IsPositive()
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// IsOverdue returns true if the invoice is past due date and still outstanding
func (inv *Invoice) IsOverdue() bool {
	if !inv.IsOutstanding() {
		return false
	}
	if inv.DueDate == nil {
		return false
	}
	return time.Now().After(*inv.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (inv *Invoice) DaysOverdue() int {
	if !inv.IsOverdue() {
		return 0
	}
	return int(time.Since(*inv.DueDate).Hours() / 24)
}

// PaidPercentage returns the percentage of total that has been paid (0-100)
func (inv *Invoice) PaidPercentage() decimal.Decimal {
	if inv.TotalAmount.IsZero() {
		return decimal.NewFromInt(100)
	}
	return inv.PaidAmount.Div(inv.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
}
