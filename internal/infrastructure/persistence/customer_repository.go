package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository is the GORM-backed partner.CustomerRepository.
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// FindByID returns nil without error when no customer exists; the service
// layer decides whether that is a 404.
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode looks up by the normalized (upper-case) customer code.
func (r *GormCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).First(&model, "code = ?", strings.ToUpper(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func customersFromModels(rows []models.CustomerModel) []partner.Customer {
	customers := make([]partner.Customer, len(rows))
	for i := range rows {
		customers[i] = *rows[i].ToDomain()
	}
	return customers
}

func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	var rows []models.CustomerModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return customersFromModels(rows), nil
}

func (r *GormCustomerRepository) FindByStatus(ctx context.Context, status partner.CustomerStatus, filter shared.Filter) ([]partner.Customer, error) {
	var rows []models.CustomerModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.CustomerModel{}).Where("status = ?", status),
		filter,
	)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return customersFromModels(rows), nil
}

func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return translateUniqueViolation(
		r.db.WithContext(ctx).Save(models.CustomerModelFromDomain(customer)).Error,
		"ALREADY_EXISTS",
		"A customer with this code already exists",
	)
}

// SaveWithLock updates the row only if it still holds the version the
// aggregate was loaded with. Domain mutators already bumped the in-memory
// version, so the row must match customer.Version-1.
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", customer.ID, customer.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The customer has been modified by another transaction")
	}
	return nil
}

func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CustomerModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormCustomerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateCustomerCode produces the next "CUS-NNNNN" code from the highest
// existing one. Two concurrent creates can draw the same code; the unique
// index on code turns the loser into a conflict.
func (r *GormCustomerRepository) GenerateCustomerCode(ctx context.Context) (string, error) {
	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Select("code").
		Where("code LIKE ?", "CUS-%").
		Order("code DESC").
		Limit(1).
		Scan(&maxCode).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxCode != "" {
		var seq int
		if _, err := fmt.Sscanf(maxCode, "CUS-%05d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}
	return fmt.Sprintf("CUS-%05d", nextSeq), nil
}

// applyFilter adds conditions plus ordering and pagination.
func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		query = query.Order(SortClause(filter.OrderBy, filter.OrderDir, CustomerSortFields, "name"))
	} else {
		query = query.Order("name ASC")
	}
	return query
}

// applyConditions adds the search and field filters only, so Count sees the
// same conditions without pagination.
func (r *GormCustomerRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			pattern, pattern, pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "has_balance":
			if value == true {
				query = query.Where("balance <> 0")
			} else {
				query = query.Where("balance = 0")
			}
		case "has_credit_limit":
			if value == true {
				query = query.Where("credit_limit > 0")
			} else {
				query = query.Where("credit_limit = 0")
			}
		}
	}
	return query
}
