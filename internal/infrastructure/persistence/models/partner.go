package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/partner"
)

// CustomerModel is the customers table. Monetary columns use decimal(18,4)
// so balances survive round-tripping without float drift.
type CustomerModel struct {
	AggregateModel
	Code        string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_customer_code"`
	Name        string                 `gorm:"type:varchar(200);not null"`
	Phone       string                 `gorm:"type:varchar(50);index"`
	Email       string                 `gorm:"type:varchar(200);index"`
	Address     string                 `gorm:"type:text"`
	TaxID       string                 `gorm:"type:varchar(50)"`
	CreditLimit decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Balance     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Status      partner.CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       string                 `gorm:"type:text"`
}

func (CustomerModel) TableName() string { return "customers" }

func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Phone:             m.Phone,
		Email:             m.Email,
		Address:           m.Address,
		TaxID:             m.TaxID,
		CreditLimit:       m.CreditLimit,
		Balance:           m.Balance,
		Status:            m.Status,
		Notes:             m.Notes,
	}
}

func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Name = c.Name
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
	m.TaxID = c.TaxID
	m.CreditLimit = c.CreditLimit
	m.Balance = c.Balance
	m.Status = c.Status
	m.Notes = c.Notes
}

func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

// BalanceTransactionModel is the balance_transactions table, the append-only
// ledger behind a customer's balance. The composite customer/time index
// serves the balance-history listing.
type BalanceTransactionModel struct {
	BaseModel
	CustomerID      uuid.UUID                            `gorm:"type:uuid;not null;index:idx_bal_tx_customer_time,priority:1"`
	TransactionType partner.BalanceTransactionType       `gorm:"type:varchar(30);not null;index:idx_bal_tx_type"`
	Amount          decimal.Decimal                      `gorm:"type:decimal(18,4);not null"`
	BalanceBefore   decimal.Decimal                      `gorm:"type:decimal(18,4);not null"`
	BalanceAfter    decimal.Decimal                      `gorm:"type:decimal(18,4);not null"`
	SourceType      partner.BalanceTransactionSourceType `gorm:"type:varchar(30);not null;index:idx_bal_tx_source"`
	SourceID        *uuid.UUID                           `gorm:"type:uuid;index:idx_bal_tx_source"`
	Reference       string                               `gorm:"type:varchar(100)"`
	Remark          string                               `gorm:"type:varchar(500)"`
	TransactionDate time.Time                            `gorm:"type:timestamptz;not null;index:idx_bal_tx_customer_time,priority:2"`
}

func (BalanceTransactionModel) TableName() string { return "balance_transactions" }

func (m *BalanceTransactionModel) ToDomain() *partner.BalanceTransaction {
	return &partner.BalanceTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		CustomerID:      m.CustomerID,
		TransactionType: m.TransactionType,
		Amount:          m.Amount,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		SourceType:      m.SourceType,
		SourceID:        m.SourceID,
		Reference:       m.Reference,
		Remark:          m.Remark,
		TransactionDate: m.TransactionDate,
	}
}

func (m *BalanceTransactionModel) FromDomain(t *partner.BalanceTransaction) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.CustomerID = t.CustomerID
	m.TransactionType = t.TransactionType
	m.Amount = t.Amount
	m.BalanceBefore = t.BalanceBefore
	m.BalanceAfter = t.BalanceAfter
	m.SourceType = t.SourceType
	m.SourceID = t.SourceID
	m.Reference = t.Reference
	m.Remark = t.Remark
	m.TransactionDate = t.TransactionDate
}

func BalanceTransactionModelFromDomain(t *partner.BalanceTransaction) *BalanceTransactionModel {
	m := &BalanceTransactionModel{}
	m.FromDomain(t)
	return m
}
