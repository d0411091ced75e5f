package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// BalanceTransactionType says which direction a ledger entry moves the
// receivable balance and why.
type BalanceTransactionType string

const (
	BalanceTransactionTypeInvoice    BalanceTransactionType = "INVOICE"    // confirmation, increase
	BalanceTransactionTypePayment    BalanceTransactionType = "PAYMENT"    // allocation, decrease
	BalanceTransactionTypeReversal   BalanceTransactionType = "REVERSAL"   // cancellation, decrease
	BalanceTransactionTypeAdjustment BalanceTransactionType = "ADJUSTMENT" // manual, either direction
)

func (t BalanceTransactionType) String() string { return string(t) }

func (t BalanceTransactionType) IsValid() bool {
	switch t {
	case BalanceTransactionTypeInvoice,
		BalanceTransactionTypePayment,
		BalanceTransactionTypeReversal,
		BalanceTransactionTypeAdjustment:
		return true
	}
	return false
}

func (t BalanceTransactionType) IsIncrease() bool {
	return t == BalanceTransactionTypeInvoice
}

func (t BalanceTransactionType) IsDecrease() bool {
	return t == BalanceTransactionTypePayment || t == BalanceTransactionTypeReversal
}

// BalanceTransactionSourceType names the kind of document behind an entry.
type BalanceTransactionSourceType string

const (
	BalanceSourceTypeInvoice BalanceTransactionSourceType = "INVOICE"
	BalanceSourceTypePayment BalanceTransactionSourceType = "PAYMENT"
	BalanceSourceTypeManual  BalanceTransactionSourceType = "MANUAL"
)

func (s BalanceTransactionSourceType) String() string { return string(s) }

func (s BalanceTransactionSourceType) IsValid() bool {
	switch s {
	case BalanceSourceTypeInvoice, BalanceSourceTypePayment, BalanceSourceTypeManual:
		return true
	}
	return false
}

// BalanceTransaction is an immutable record of a customer receivable
// balance change. Once created it is never modified - corrections are
// made with new transactions.
type BalanceTransaction struct {
	shared.BaseEntity
	CustomerID      uuid.UUID
	TransactionType BalanceTransactionType
	Amount          decimal.Decimal // always positive, direction comes from the type
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	SourceType      BalanceTransactionSourceType
	SourceID        *uuid.UUID // invoice or payment ID, nil for manual entries
	Reference       string
	Remark          string
	TransactionDate time.Time
}

func NewBalanceTransaction(
	customerID uuid.UUID,
	txType BalanceTransactionType,
	amount decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
	sourceType BalanceTransactionSourceType,
) (*BalanceTransaction, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid balance transaction type")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type")
	}

	return &BalanceTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		CustomerID:      customerID,
		TransactionType: txType,
		Amount:          amount,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		SourceType:      sourceType,
		TransactionDate: time.Now(),
	}, nil
}

func (t *BalanceTransaction) WithSourceID(sourceID uuid.UUID) *BalanceTransaction {
	t.SourceID = &sourceID
	return t
}

func (t *BalanceTransaction) WithReference(reference string) *BalanceTransaction {
	t.Reference = reference
	return t
}

func (t *BalanceTransaction) WithRemark(remark string) *BalanceTransaction {
	t.Remark = remark
	return t
}

func (t *BalanceTransaction) WithTransactionDate(date time.Time) *BalanceTransaction {
	t.TransactionDate = date
	return t
}

// GetSignedAmount is positive for increases and negative for decreases.
// Adjustments carry their direction in the before/after pair.
func (t *BalanceTransaction) GetSignedAmount() decimal.Decimal {
	if t.TransactionType.IsDecrease() {
		return t.Amount.Neg()
	}
	if t.TransactionType == BalanceTransactionTypeAdjustment {
		return t.BalanceAfter.Sub(t.BalanceBefore)
	}
	return t.Amount
}

func (t *BalanceTransaction) BalanceChange() decimal.Decimal {
	return t.BalanceAfter.Sub(t.BalanceBefore)
}

// CreateInvoiceTransaction records an invoice confirmation raising the
// balance.
func CreateInvoiceTransaction(customerID uuid.UUID, amount, balanceBefore decimal.Decimal, invoiceID uuid.UUID) (*BalanceTransaction, error) {
	tx, err := NewBalanceTransaction(customerID, BalanceTransactionTypeInvoice,
		amount, balanceBefore, balanceBefore.Add(amount), BalanceSourceTypeInvoice)
	if err != nil {
		return nil, err
	}
	return tx.WithSourceID(invoiceID), nil
}

// CreatePaymentTransaction records an allocated payment lowering the
// balance. The balance may go negative: a customer in credit is a valid
// ledger state.
func CreatePaymentTransaction(customerID uuid.UUID, amount, balanceBefore decimal.Decimal, paymentID uuid.UUID) (*BalanceTransaction, error) {
	tx, err := NewBalanceTransaction(customerID, BalanceTransactionTypePayment,
		amount, balanceBefore, balanceBefore.Sub(amount), BalanceSourceTypePayment)
	if err != nil {
		return nil, err
	}
	return tx.WithSourceID(paymentID), nil
}

// CreateReversalTransaction records an invoice cancellation reversing its
// confirmation effect on the balance.
func CreateReversalTransaction(customerID uuid.UUID, amount, balanceBefore decimal.Decimal, invoiceID uuid.UUID) (*BalanceTransaction, error) {
	tx, err := NewBalanceTransaction(customerID, BalanceTransactionTypeReversal,
		amount, balanceBefore, balanceBefore.Sub(amount), BalanceSourceTypeInvoice)
	if err != nil {
		return nil, err
	}
	return tx.WithSourceID(invoiceID), nil
}
