package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// Payments are written once, together with their allocations, and never
// updated afterwards.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment with its allocations
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a payment by its payment number
func (r *GormPaymentRepository) FindByNumber(ctx context.Context, paymentNumber string) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "payment_number = ?", paymentNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer retrieves a customer's payments, newest first
func (r *GormPaymentRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter billing.PaymentFilter) ([]*billing.Payment, int64, error) {
	filter.CustomerID = &customerID
	return r.FindAll(ctx, filter)
}

// FindAll finds payments matching the filter with a total count
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter billing.PaymentFilter) ([]*billing.Payment, int64, error) {
	var paymentModels []models.PaymentModel
	var total int64

	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		query = query.Order(SortClause(filter.OrderBy, filter.OrderDir, PaymentSortFields, "payment_date"))
	} else {
		query = query.Order("payment_date DESC, created_at DESC")
	}

	if err := query.Preload("Allocations").Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*billing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = model.ToDomain()
	}
	return payments, total, nil
}

// Create persists a new payment and its allocations in one go. A payment
// number collision (two collections drawing the same generated number)
// comes back as a concurrency conflict the caller can retry.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return translateUniqueViolation(
		r.db.WithContext(ctx).Create(model).Error,
		"CONCURRENT_MODIFICATION",
		"Payment number was taken by a concurrent collection, retry the request",
	)
}

// FindAllocationsByInvoice returns every allocation made against an invoice
func (r *GormPaymentRepository) FindAllocationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.PaymentAllocation, error) {
	var allocationModels []models.PaymentAllocationModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("allocated_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}

	allocations := make([]billing.PaymentAllocation, len(allocationModels))
	for i, model := range allocationModels {
		allocations[i] = *model.ToDomain()
	}
	return allocations, nil
}

// GeneratePaymentNumber produces the next number, REC-YYYYMMDD-NNNNN.
// The daily sequence restarts at 1 each day.
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("REC-%s-", time.Now().Format("20060102"))

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("payment_number").
		Where("payment_number LIKE ?", prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Scan(&maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber[len(prefix):], "%05d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextSeq), nil
}

// applyFilter applies the non-pagination filter criteria
func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.PaymentNumber != "" {
		query = query.Where("payment_number = ?", filter.PaymentNumber)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", *filter.DateTo)
	}
	if filter.SurplusOnly {
		query = query.Where("surplus_amount > 0")
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR customer_name ILIKE ? OR reference ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	return query
}

// Ensure GormPaymentRepository implements the interface
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
