package partner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BalanceTransactionFilter contains filter options for listing ledger entries
type BalanceTransactionFilter struct {
	CustomerID      *uuid.UUID
	TransactionType *BalanceTransactionType
	SourceType      *BalanceTransactionSourceType
	DateFrom        *time.Time
	DateTo          *time.Time
	Page            int
	PageSize        int
}

// BalanceTransactionRepository defines the interface for ledger persistence
type BalanceTransactionRepository interface {
	// Create creates a new balance transaction
	Create(ctx context.Context, transaction *BalanceTransaction) error

	// FindByID finds a balance transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BalanceTransaction, error)

	// FindByCustomerID finds all balance transactions for a customer
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter BalanceTransactionFilter) ([]*BalanceTransaction, int64, error)

	// FindBySourceID finds balance transactions by source document ID
	FindBySourceID(ctx context.Context, sourceType BalanceTransactionSourceType, sourceID uuid.UUID) ([]*BalanceTransaction, error)

	// GetLatestByCustomerID gets the latest balance transaction for a customer
	GetLatestByCustomerID(ctx context.Context, customerID uuid.UUID) (*BalanceTransaction, error)
}
