package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository is the GORM-backed billing.InvoiceRepository.
type GormInvoiceRepository struct {
	db *gorm.DB
}

func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).First(&model, "invoice_number = ?", invoiceNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func invoicesFromModels(rows []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices
}

// FindOutstandingByCustomer returns the customer's payable invoices
// (confirmed or partially paid with a positive remaining amount) ordered
// oldest-first by invoice date, ID as a deterministic tiebreak. Rows are
// selected FOR UPDATE: callers allocate against them inside a transaction,
// and the lock keeps two concurrent payments from settling the same
// invoice twice.
func (r *GormInvoiceRepository) FindOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND status IN ? AND remaining_amount > 0",
			customerID,
			[]billing.InvoiceStatus{billing.InvoiceStatusConfirmed, billing.InvoiceStatusPartiallyPaid}).
		Order("invoice_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return invoicesFromModels(rows), nil
}

// FindAll lists invoices matching the filter along with the total count.
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	var total int64
	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		query = query.Order(SortClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields, "invoice_date"))
	} else {
		query = query.Order("invoice_date DESC, created_at DESC")
	}

	var rows []models.InvoiceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return invoicesFromModels(rows), total, nil
}

func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return translateUniqueViolation(
		r.db.WithContext(ctx).Save(models.InvoiceModelFromDomain(invoice)).Error,
		"CONCURRENT_MODIFICATION",
		"Invoice number was taken by a concurrent create, retry the request",
	)
}

// SaveWithLock updates the row only if it still holds the version the
// aggregate was loaded with. Domain mutators already bumped the in-memory
// version, so the row must match invoice.Version-1.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another transaction")
	}
	return nil
}

func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateInvoiceNumber produces the next "INV-YYYYMMDD-NNNNN" number; the
// sequence restarts at 1 each day. Two concurrent creates can draw the
// same number; the unique index on invoice_number turns the loser into a
// conflict.
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("20060102"))

	var maxNumber string
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Scan(&maxNumber).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
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

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number = ?", filter.InvoiceNumber)
	}
	if filter.DateFrom != nil {
		query = query.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("invoice_date <= ?", *filter.DateTo)
	}
	if filter.OverdueOnly {
		query = query.Where("due_date IS NOT NULL AND due_date < ? AND status IN ?",
			time.Now(),
			[]billing.InvoiceStatus{billing.InvoiceStatusConfirmed, billing.InvoiceStatusPartiallyPaid})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR customer_name ILIKE ?", pattern, pattern)
	}
	return query
}
