package partner

import (
	"time"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCustomerRequest is the request to create a customer
type CreateCustomerRequest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name" binding:"required"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	Address     string           `json:"address"`
	TaxID       string           `json:"tax_id"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       string           `json:"notes"`
}

// UpdateCustomerRequest is the request to update a customer's details
type UpdateCustomerRequest struct {
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	Address     string           `json:"address"`
	TaxID       string           `json:"tax_id"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       *string          `json:"notes"`
}

// CustomerResponse is the customer representation returned to callers
type CustomerResponse struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone,omitempty"`
	Email           string          `json:"email,omitempty"`
	Address         string          `json:"address,omitempty"`
	TaxID           string          `json:"tax_id,omitempty"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	Balance         decimal.Decimal `json:"balance"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToCustomerResponse converts a customer aggregate to its response form
func ToCustomerResponse(c *partner.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:              c.ID,
		Code:            c.Code,
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		Address:         c.Address,
		TaxID:           c.TaxID,
		CreditLimit:     c.CreditLimit,
		Balance:         c.Balance,
		AvailableCredit: c.AvailableCredit(),
		Status:          string(c.Status),
		Notes:           c.Notes,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ListCustomersRequest carries list criteria from the interface layer
type ListCustomersRequest struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// BalanceTransactionResponse is one entry of a customer's balance ledger
type BalanceTransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	SignedAmount    decimal.Decimal `json:"signed_amount"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	SourceType      string          `json:"source_type"`
	SourceID        *uuid.UUID      `json:"source_id,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Remark          string          `json:"remark,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// ToBalanceTransactionResponse converts a ledger entry to its response form
func ToBalanceTransactionResponse(tx *partner.BalanceTransaction) *BalanceTransactionResponse {
	return &BalanceTransactionResponse{
		ID:              tx.ID,
		Type:            tx.TransactionType.String(),
		Amount:          tx.Amount,
		SignedAmount:    tx.GetSignedAmount(),
		BalanceBefore:   tx.BalanceBefore,
		BalanceAfter:    tx.BalanceAfter,
		SourceType:      tx.SourceType.String(),
		SourceID:        tx.SourceID,
		Reference:       tx.Reference,
		Remark:          tx.Remark,
		TransactionDate: tx.TransactionDate,
	}
}
