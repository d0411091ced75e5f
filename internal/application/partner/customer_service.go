package partner

import (
	"context"
	"fmt"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo  partner.CustomerRepository
	balanceTxRepo partner.BalanceTransactionRepository
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo partner.CustomerRepository,
	balanceTxRepo partner.BalanceTransactionRepository,
) *CustomerService {
	return &CustomerService{
		customerRepo:  customerRepo,
		balanceTxRepo: balanceTxRepo,
	}
}

// Create creates a new customer. When no code is supplied the next
// sequential code is generated.
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	code := req.Code
	if code == "" {
		generated, err := s.customerRepo.GenerateCustomerCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate customer code: %w", err)
		}
		code = generated
	} else {
		exists, err := s.customerRepo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this code already exists")
		}
	}

	customer, err := partner.NewCustomer(code, req.Name)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" || req.Email != "" || req.Address != "" {
		if err := customer.SetContact(req.Phone, req.Email, req.Address); err != nil {
			return nil, err
		}
	}
	if req.TaxID != "" {
		if err := customer.SetTaxID(req.TaxID); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit != nil && !req.CreditLimit.IsZero() {
		if err := customer.SetCreditLimit(*req.CreditLimit); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		customer.SetNotes(req.Notes)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	return ToCustomerResponse(customer), nil
}

// Get retrieves a customer by ID
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}
	return ToCustomerResponse(customer), nil
}

// GetByCode retrieves a customer by its code
func (s *CustomerService) GetByCode(ctx context.Context, code string) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}
	return ToCustomerResponse(customer), nil
}

// Update updates a customer's details. The balance is never updated here;
// it only moves through invoice and payment flows.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}

	if req.Name != "" {
		if err := customer.Update(req.Name); err != nil {
			return nil, err
		}
	}
	if req.Phone != "" || req.Email != "" || req.Address != "" {
		phone := customer.Phone
		email := customer.Email
		address := customer.Address
		if req.Phone != "" {
			phone = req.Phone
		}
		if req.Email != "" {
			email = req.Email
		}
		if req.Address != "" {
			address = req.Address
		}
		if err := customer.SetContact(phone, email, address); err != nil {
			return nil, err
		}
	}
	if req.TaxID != "" {
		if err := customer.SetTaxID(req.TaxID); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit != nil {
		if err := customer.SetCreditLimit(*req.CreditLimit); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		customer.SetNotes(*req.Notes)
	}

	// Detail edits may touch several fields; the single version check of
	// SaveWithLock only fits single-mutation flows like balance changes
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	return ToCustomerResponse(customer), nil
}

// List retrieves customers matching the given criteria
func (s *CustomerService) List(ctx context.Context, req ListCustomersRequest) (*shared.Paginated[*CustomerResponse], error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	filter.Search = req.Search

	var customers []partner.Customer
	var err error
	if req.Status != "" {
		status := partner.CustomerStatus(req.Status)
		if status != partner.CustomerStatusActive && status != partner.CustomerStatusInactive {
			return nil, shared.NewDomainError("INVALID_STATUS",
				fmt.Sprintf("Customer status %q is not valid", req.Status))
		}
		customers, err = s.customerRepo.FindByStatus(ctx, status, filter)
	} else {
		customers, err = s.customerRepo.FindAll(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	total, err := s.customerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Activate re-enables an inactive customer
func (s *CustomerService) Activate(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, id, func(c *partner.Customer) error { return c.Activate() })
}

// Deactivate disables a customer. Deactivated customers keep their
// balance and history but cannot receive new invoices or payments.
func (s *CustomerService) Deactivate(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, id, func(c *partner.Customer) error { return c.Deactivate() })
}

func (s *CustomerService) changeStatus(ctx context.Context, id uuid.UUID, change func(*partner.Customer) error) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}
	if err := change(customer); err != nil {
		return nil, err
	}
	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}

// GetBalanceHistory returns a page of the customer's balance ledger,
// newest first
func (s *CustomerService) GetBalanceHistory(ctx context.Context, customerID uuid.UUID, filter partner.BalanceTransactionFilter) (*shared.Paginated[*BalanceTransactionResponse], error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	transactions, total, err := s.balanceTxRepo.FindByCustomerID(ctx, customerID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*BalanceTransactionResponse, len(transactions))
	for i, tx := range transactions {
		responses[i] = ToBalanceTransactionResponse(tx)
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}
