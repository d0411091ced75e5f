package billing

import (
	"context"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the repositories a
// payment collection touches. When a function is executed within a
// transaction scope, all repository operations are part of the same
// database transaction and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing-side
// repositories within a transaction. All repositories returned share the
// same underlying database transaction.
//
// Aggregate boundary notes:
//   - InvoiceRepo: the Invoice aggregate carries its own paid/remaining
//     amounts; allocations live on the Payment.
//   - PaymentRepo: payments are written once together with their
//     allocations via GORM association handling.
//   - CustomerRepo / BalanceTxRepo: the customer's running balance and
//     its append-only ledger move in the same transaction as the
//     invoices and the payment.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
	// CustomerRepo returns the customer repository scoped to the current transaction
	CustomerRepo() partner.CustomerRepository
	// BalanceTxRepo returns the balance transaction repository scoped to the current transaction
	BalanceTxRepo() partner.BalanceTransactionRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	invoiceRepo   billing.InvoiceRepository
	paymentRepo   billing.PaymentRepository
	customerRepo  partner.CustomerRepository
	balanceTxRepo partner.BalanceTransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	customerRepo partner.CustomerRepository,
	balanceTxRepo partner.BalanceTransactionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo:   invoiceRepo,
		paymentRepo:   paymentRepo,
		customerRepo:  customerRepo,
		balanceTxRepo: balanceTxRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

// CustomerRepo returns the customer repository.
func (s *NoOpTransactionScope) CustomerRepo() partner.CustomerRepository {
	return s.customerRepo
}

// BalanceTxRepo returns the balance transaction repository.
func (s *NoOpTransactionScope) BalanceTxRepo() partner.BalanceTransactionRepository {
	return s.balanceTxRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
