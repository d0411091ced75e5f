package models

import (
	"time"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_number"`
	CustomerID      uuid.UUID             `gorm:"type:uuid;not null;index:idx_invoice_customer"`
	CustomerName    string                `gorm:"type:varchar(200);not null"`
	InvoiceDate     time.Time             `gorm:"type:timestamptz;not null;index:idx_invoice_date"`
	DueDate         *time.Time            `gorm:"type:timestamptz;index"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaidAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	RemainingAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null;index"`
	Status          billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Notes           string                `gorm:"type:text"`
	ConfirmedAt     *time.Time
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseAggregateRoot: m.ToAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		InvoiceDate:       m.InvoiceDate,
		DueDate:           m.DueDate,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		RemainingAmount:   m.RemainingAmount,
		Status:            m.Status,
		Notes:             m.Notes,
		ConfirmedAt:       m.ConfirmedAt,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.CustomerName = inv.CustomerName
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.RemainingAmount = inv.RemainingAmount
	m.Status = inv.Status
	m.Notes = inv.Notes
	m.ConfirmedAt = inv.ConfirmedAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// Allocations are persisted together with the payment via GORM association
// handling; a payment row is never updated after creation.
type PaymentModel struct {
	AggregateModel
	PaymentNumber   string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_number"`
	CustomerID      uuid.UUID                `gorm:"type:uuid;not null;index:idx_payment_customer"`
	CustomerName    string                   `gorm:"type:varchar(200);not null"`
	PaymentDate     time.Time                `gorm:"type:timestamptz;not null;index:idx_payment_date"`
	Amount          decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	SurplusAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0;index"`
	PaymentMethod   billing.PaymentMethod    `gorm:"type:varchar(30);not null"`
	Reference       string                   `gorm:"type:varchar(100)"`
	Notes           string                   `gorm:"type:text"`
	Allocations     []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		PaymentNumber:     m.PaymentNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		PaymentDate:       m.PaymentDate,
		Amount:            m.Amount,
		AllocatedAmount:   m.AllocatedAmount,
		SurplusAmount:     m.SurplusAmount,
		PaymentMethod:     m.PaymentMethod,
		Reference:         m.Reference,
		Notes:             m.Notes,
		Allocations:       make([]billing.PaymentAllocation, len(m.Allocations)),
	}
	for i, alloc := range m.Allocations {
		p.Allocations[i] = *alloc.ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.CustomerID = p.CustomerID
	m.CustomerName = p.CustomerName
	m.PaymentDate = p.PaymentDate
	m.Amount = p.Amount
	m.AllocatedAmount = p.AllocatedAmount
	m.SurplusAmount = p.SurplusAmount
	m.PaymentMethod = p.PaymentMethod
	m.Reference = p.Reference
	m.Notes = p.Notes
	m.Allocations = make([]PaymentAllocationModel, len(p.Allocations))
	for i, alloc := range p.Allocations {
		m.Allocations[i] = *PaymentAllocationModelFromDomain(&alloc)
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is the persistence model for PaymentAllocation.
type PaymentAllocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_alloc_payment"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_alloc_invoice"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain PaymentAllocation.
func (m *PaymentAllocationModel) ToDomain() *billing.PaymentAllocation {
	return &billing.PaymentAllocation{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		InvoiceID:     m.InvoiceID,
		InvoiceNumber:     m.InvoiceNumber,
		Amount:            m.Amount,
		AllocatedAt:   m.AllocatedAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentAllocation.
func (m *PaymentAllocationModel) FromDomain(a *billing.PaymentAllocation) {
	m.ID = a.ID
	m.PaymentID = a.PaymentID
	m.InvoiceID = a.InvoiceID
	m.InvoiceNumber = a.InvoiceNumber
	m.Amount = a.Amount
	m.AllocatedAt = a.AllocatedAt
}

// PaymentAllocationModelFromDomain creates a new persistence model from domain.
func PaymentAllocationModelFromDomain(a *billing.PaymentAllocation) *PaymentAllocationModel {
	m := &PaymentAllocationModel{}
	m.FromDomain(a)
	return m
}
