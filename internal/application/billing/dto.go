package billing

import (
	"time"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest is the request to create a draft invoice
type CreateInvoiceRequest struct {
	CustomerID  uuid.UUID       `json:"customer_id" binding:"required"`
	InvoiceDate time.Time       `json:"invoice_date" binding:"required"`
	DueDate     *time.Time      `json:"due_date"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	Notes       string          `json:"notes"`
}

// InvoiceResponse is the invoice representation returned to callers
type InvoiceResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	IsOverdue       bool            `json:"is_overdue"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToInvoiceResponse converts an invoice aggregate to its response form
func ToInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
		TotalAmount:     inv.TotalAmount,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		Status:          inv.Status.String(),
		Notes:           inv.Notes,
		ConfirmedAt:     inv.ConfirmedAt,
		PaidAt:          inv.PaidAt,
		CancelledAt:     inv.CancelledAt,
		CancelReason:    inv.CancelReason,
		IsOverdue:       inv.IsOverdue(),
		Version:         inv.Version,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// ListInvoicesRequest carries list criteria from the interface layer
type ListInvoicesRequest struct {
	CustomerID  *uuid.UUID
	Status      string
	DateFrom    *time.Time
	DateTo      *time.Time
	OverdueOnly bool
	Page        int
	PageSize    int
}

// ManualAllocationInput names an invoice and the amount to apply to it
type ManualAllocationInput struct {
	InvoiceID uuid.UUID       `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// CollectPaymentRequest is the request to record a customer payment and
// allocate it against outstanding invoices
type CollectPaymentRequest struct {
	CustomerID     uuid.UUID               `json:"customer_id" binding:"required"`
	Amount         decimal.Decimal         `json:"amount" binding:"required"`
	PaymentMethod  string                  `json:"payment_method" binding:"required"`
	PaymentDate    *time.Time              `json:"payment_date"`
	Reference      string                  `json:"reference"`
	Notes          string                  `json:"notes"`
	Allocations    []ManualAllocationInput `json:"allocations"`
	AutoAllocate   bool                    `json:"auto_allocate"`
	IdempotencyKey string                  `json:"-"`
}

// AllocationResponse describes one slice of a payment applied to an invoice
type AllocationResponse struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceStatus string          `json:"invoice_status"`
}

// PaymentResponse is the payment representation returned to callers
type PaymentResponse struct {
	ID              uuid.UUID            `json:"id"`
	PaymentNumber   string               `json:"payment_number"`
	CustomerID      uuid.UUID            `json:"customer_id"`
	CustomerName    string               `json:"customer_name"`
	PaymentDate     time.Time            `json:"payment_date"`
	Amount          decimal.Decimal      `json:"amount"`
	AllocatedAmount decimal.Decimal      `json:"allocated_amount"`
	SurplusAmount   decimal.Decimal      `json:"surplus_amount"`
	PaymentMethod   string               `json:"payment_method"`
	Reference       string               `json:"reference,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	Allocations     []AllocationResponse `json:"allocations"`
	CreatedAt       time.Time            `json:"created_at"`
}

// CollectPaymentResult is the full outcome of a payment collection
type CollectPaymentResult struct {
	Payment         *PaymentResponse `json:"payment"`
	CustomerBalance decimal.Decimal  `json:"customer_balance"`
	InvoicesPaid    int              `json:"invoices_paid"`
	InvoicesPartial int              `json:"invoices_partial"`
	Replayed        bool             `json:"replayed,omitempty"`
}

// ToPaymentResponse converts a payment aggregate to its response form.
// Invoice statuses are filled in from the updated invoices when available.
func ToPaymentResponse(p *billing.Payment, invoiceStatus map[uuid.UUID]billing.InvoiceStatus) *PaymentResponse {
	allocations := make([]AllocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		resp := AllocationResponse{
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Amount:        a.Amount,
		}
		if status, ok := invoiceStatus[a.InvoiceID]; ok {
			resp.InvoiceStatus = status.String()
		}
		allocations = append(allocations, resp)
	}
	return &PaymentResponse{
		ID:              p.ID,
		PaymentNumber:   p.PaymentNumber,
		CustomerID:      p.CustomerID,
		CustomerName:    p.CustomerName,
		PaymentDate:     p.PaymentDate,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		SurplusAmount:   p.SurplusAmount,
		PaymentMethod:   p.PaymentMethod.String(),
		Reference:       p.Reference,
		Notes:           p.Notes,
		Allocations:     allocations,
		CreatedAt:       p.CreatedAt,
	}
}

// ListPaymentsRequest carries list criteria from the interface layer
type ListPaymentsRequest struct {
	CustomerID    *uuid.UUID
	PaymentMethod string
	DateFrom      *time.Time
	DateTo        *time.Time
	SurplusOnly   bool
	Page          int
	PageSize      int
}

// PreviewAllocationRequest asks what an allocation would look like
// without recording anything
type PreviewAllocationRequest struct {
	CustomerID   uuid.UUID               `json:"customer_id" binding:"required"`
	Amount       decimal.Decimal         `json:"amount" binding:"required"`
	Allocations  []ManualAllocationInput `json:"allocations"`
	AutoAllocate bool                    `json:"auto_allocate"`
}

// PreviewAllocationResult is the dry-run allocation outcome
type PreviewAllocationResult struct {
	Allocations    []AllocationResponse `json:"allocations"`
	TotalAllocated decimal.Decimal      `json:"total_allocated"`
	Surplus        decimal.Decimal      `json:"surplus"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
