package partner

import (
	"context"
	"testing"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// MockCustomerRepository is a mock implementation of partner.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByStatus(ctx context.Context, status partner.CustomerStatus, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) GenerateCustomerCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockBalanceTransactionRepository is a mock implementation of partner.BalanceTransactionRepository
type MockBalanceTransactionRepository struct {
	mock.Mock
}

func (m *MockBalanceTransactionRepository) Create(ctx context.Context, transaction *partner.BalanceTransaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockBalanceTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.BalanceTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.BalanceTransaction), args.Error(1)
}

func (m *MockBalanceTransactionRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter partner.BalanceTransactionFilter) ([]*partner.BalanceTransaction, int64, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*partner.BalanceTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockBalanceTransactionRepository) FindBySourceID(ctx context.Context, sourceType partner.BalanceTransactionSourceType, sourceID uuid.UUID) ([]*partner.BalanceTransaction, error) {
	args := m.Called(ctx, sourceType, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*partner.BalanceTransaction), args.Error(1)
}

func (m *MockBalanceTransactionRepository) GetLatestByCustomerID(ctx context.Context, customerID uuid.UUID) (*partner.BalanceTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.BalanceTransaction), args.Error(1)
}

var _ partner.CustomerRepository = (*MockCustomerRepository)(nil)
var _ partner.BalanceTransactionRepository = (*MockBalanceTransactionRepository)(nil)

func newFixture() (*MockCustomerRepository, *MockBalanceTransactionRepository, *CustomerService) {
	customerRepo := new(MockCustomerRepository)
	balanceTxRepo := new(MockBalanceTransactionRepository)
	return customerRepo, balanceTxRepo, NewCustomerService(customerRepo, balanceTxRepo)
}

func TestCustomerServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a customer with a generated code", func(t *testing.T) {
		customerRepo, _, service := newFixture()
		customerRepo.On("GenerateCustomerCode", mock.Anything).Return("CUS-00042", nil)
		customerRepo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)

		result, err := service.Create(ctx, CreateCustomerRequest{Name: "Cairo Trading Co"})

		require.NoError(t, err)
		assert.Equal(t, "CUS-00042", result.Code)
		assert.Equal(t, "Cairo Trading Co", result.Name)
		assert.True(t, result.Balance.IsZero())
		assert.Equal(t, string(partner.CustomerStatusActive), result.Status)
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		customerRepo, _, service := newFixture()
		customerRepo.On("ExistsByCode", mock.Anything, "CUS-00001").Return(true, nil)

		_, err := service.Create(ctx, CreateCustomerRequest{Code: "CUS-00001", Name: "Cairo Trading Co"})

		require.Error(t, err)
		assertDomainCode(t, err, "ALREADY_EXISTS")
		customerRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("applies optional fields", func(t *testing.T) {
		customerRepo, _, service := newFixture()
		customerRepo.On("ExistsByCode", mock.Anything, "CUS-00002").Return(false, nil)
		customerRepo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)
		limit := decimal.NewFromInt(5000)

		result, err := service.Create(ctx, CreateCustomerRequest{
			Code:        "CUS-00002",
			Name:        "Delta Foods",
			Phone:       "+201001234567",
			Email:       "accounts@deltafoods.example",
			CreditLimit: &limit,
		})

		require.NoError(t, err)
		assert.Equal(t, "+201001234567", result.Phone)
		assert.True(t, result.CreditLimit.Equal(limit))
		assert.True(t, result.AvailableCredit.Equal(limit))
	})
}

func TestCustomerServiceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("missing customer returns not found", func(t *testing.T) {
		customerRepo, _, service := newFixture()
		id := uuid.New()
		customerRepo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := service.Get(ctx, id)

		require.Error(t, err)
		assertDomainCode(t, err, "NOT_FOUND")
	})
}

func TestCustomerServiceBalanceHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the ledger newest first", func(t *testing.T) {
		customerRepo, balanceTxRepo, service := newFixture()
		customer, err := partner.NewCustomer("CUS-00001", "Cairo Trading Co")
		require.NoError(t, err)

		invoiceID := uuid.New()
		entry, err := partner.CreateInvoiceTransaction(customer.ID, decimal.NewFromInt(500), decimal.Zero, invoiceID)
		require.NoError(t, err)

		customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
		balanceTxRepo.On("FindByCustomerID", mock.Anything, customer.ID, mock.AnythingOfType("partner.BalanceTransactionFilter")).
			Return([]*partner.BalanceTransaction{entry}, int64(1), nil)

		result, err := service.GetBalanceHistory(ctx, customer.ID, partner.BalanceTransactionFilter{})

		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "INVOICE", result.Items[0].Type)
		assert.True(t, result.Items[0].SignedAmount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, &invoiceID, result.Items[0].SourceID)
	})
}

func TestCustomerServiceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivate then activate round trips", func(t *testing.T) {
		customerRepo, _, service := newFixture()
		customer, err := partner.NewCustomer("CUS-00001", "Cairo Trading Co")
		require.NoError(t, err)

		customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
		customerRepo.On("SaveWithLock", mock.Anything, customer).Return(nil)

		deactivated, err := service.Deactivate(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, string(partner.CustomerStatusInactive), deactivated.Status)

		activated, err := service.Activate(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, string(partner.CustomerStatusActive), activated.Status)
	})
}
