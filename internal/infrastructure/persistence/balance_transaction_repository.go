package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormBalanceTransactionRepository persists the append-only customer ledger.
type GormBalanceTransactionRepository struct {
	db *gorm.DB
}

func NewGormBalanceTransactionRepository(db *gorm.DB) *GormBalanceTransactionRepository {
	return &GormBalanceTransactionRepository{db: db}
}

var _ partner.BalanceTransactionRepository = (*GormBalanceTransactionRepository)(nil)

// Create appends a ledger entry. There is no update or delete path.
func (r *GormBalanceTransactionRepository) Create(ctx context.Context, transaction *partner.BalanceTransaction) error {
	return r.db.WithContext(ctx).Create(models.BalanceTransactionModelFromDomain(transaction)).Error
}

func (r *GormBalanceTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.BalanceTransaction, error) {
	var model models.BalanceTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func transactionsFromModels(rows []models.BalanceTransactionModel) []*partner.BalanceTransaction {
	transactions := make([]*partner.BalanceTransaction, len(rows))
	for i := range rows {
		transactions[i] = rows[i].ToDomain()
	}
	return transactions
}

// FindByCustomerID lists a customer's ledger entries newest first, with the
// total count of matching rows for pagination.
func (r *GormBalanceTransactionRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter partner.BalanceTransactionFilter) ([]*partner.BalanceTransaction, int64, error) {
	base := func() *gorm.DB {
		return r.applyFilter(
			r.db.WithContext(ctx).Model(&models.BalanceTransactionModel{}).Where("customer_id = ?", customerID),
			filter,
		)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base()
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rows []models.BalanceTransactionModel
	if err := query.Order("transaction_date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return transactionsFromModels(rows), total, nil
}

// FindBySourceID returns the entries a given invoice or payment produced.
func (r *GormBalanceTransactionRepository) FindBySourceID(ctx context.Context, sourceType partner.BalanceTransactionSourceType, sourceID uuid.UUID) ([]*partner.BalanceTransaction, error) {
	var rows []models.BalanceTransactionModel
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("transaction_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return transactionsFromModels(rows), nil
}

func (r *GormBalanceTransactionRepository) GetLatestByCustomerID(ctx context.Context, customerID uuid.UUID) (*partner.BalanceTransaction, error) {
	var model models.BalanceTransactionModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("transaction_date DESC, created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormBalanceTransactionRepository) applyFilter(query *gorm.DB, filter partner.BalanceTransactionFilter) *gorm.DB {
	if filter.TransactionType != nil {
		query = query.Where("transaction_type = ?", *filter.TransactionType)
	}
	if filter.SourceType != nil {
		query = query.Where("source_type = ?", *filter.SourceType)
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", *filter.DateTo)
	}
	return query
}
