package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	billingapp "github.com/arledger/backend/internal/application/billing"
	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type paymentHandlerMocks struct {
	invoiceRepo      *MockInvoiceRepository
	paymentRepo      *MockPaymentRepository
	customerRepo     *MockCustomerRepository
	balanceTxRepo    *MockBalanceTransactionRepository
	idempotencyStore *MockIdempotencyStore
}

func setupPaymentHandler() (*PaymentHandler, *paymentHandlerMocks) {
	mocks := &paymentHandlerMocks{
		invoiceRepo:      new(MockInvoiceRepository),
		paymentRepo:      new(MockPaymentRepository),
		customerRepo:     new(MockCustomerRepository),
		balanceTxRepo:    new(MockBalanceTransactionRepository),
		idempotencyStore: new(MockIdempotencyStore),
	}
	txScope := billingapp.NewNoOpTransactionScope(mocks.invoiceRepo, mocks.paymentRepo, mocks.customerRepo, mocks.balanceTxRepo)
	paymentService := billingapp.NewPaymentService(
		txScope,
		mocks.paymentRepo,
		mocks.invoiceRepo,
		mocks.customerRepo,
		mocks.idempotencyStore,
		billingapp.PaymentServiceConfig{
			ApplySurplusToBalance: true,
			IdempotencyTTL:        24 * time.Hour,
		},
		zap.NewNop(),
	)
	return NewPaymentHandler(paymentService), mocks
}

func setupPaymentRouter(handler *PaymentHandler) *gin.Engine {
	router := gin.New()
	handler.RegisterRoutes(router.Group("/"))
	return router
}

func createConfirmedInvoice(customer *partner.Customer, number string, total int64, invoiceDate time.Time) *billing.Invoice {
	invoice, _ := billing.NewInvoice(
		number,
		customer.ID,
		customer.Name,
		invoiceDate,
		nil,
		valueobject.NewMoneyEGP(decimal.NewFromInt(total)),
	)
	_ = invoice.Confirm()
	return invoice
}

func TestPaymentHandler_Collect_AutoAllocate(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	_ = customer.IncreaseBalance(decimal.NewFromInt(150), partner.BalanceSourceTypeInvoice.String(), uuid.New())

	older := createConfirmedInvoice(customer, "INV-000001", 100, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	newer := createConfirmedInvoice(customer, "INV-000002", 50, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))

	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	mocks.paymentRepo.On("GeneratePaymentNumber", mock.Anything).Return("PAY-000001", nil)
	mocks.invoiceRepo.On("FindOutstandingByCustomer", mock.Anything, customer.ID).Return([]*billing.Invoice{older, newer}, nil)
	mocks.balanceTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*partner.BalanceTransaction")).Return(nil)
	mocks.customerRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)
	mocks.invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	mocks.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromInt(120),
		PaymentMethod: billing.PaymentMethodCash.String(),
		AutoAllocate:  true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["invoices_paid"])
	assert.Equal(t, float64(1), data["invoices_partial"])
	assert.Equal(t, "30", data["customer_balance"])

	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, "120", payment["allocated_amount"])
	assert.Equal(t, "0", payment["surplus_amount"])

	// Oldest invoice is consumed first
	allocations := payment["allocations"].([]interface{})
	assert.Len(t, allocations, 2)
	first := allocations[0].(map[string]interface{})
	assert.Equal(t, "INV-000001", first["invoice_number"])
	assert.Equal(t, "100", first["amount"])
	second := allocations[1].(map[string]interface{})
	assert.Equal(t, "INV-000002", second["invoice_number"])
	assert.Equal(t, "20", second["amount"])

	mocks.paymentRepo.AssertExpectations(t)
	mocks.invoiceRepo.AssertExpectations(t)
	mocks.customerRepo.AssertExpectations(t)
	mocks.balanceTxRepo.AssertExpectations(t)
}

func TestPaymentHandler_Collect_SurplusGoesToBalance(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	_ = customer.IncreaseBalance(decimal.NewFromInt(100), partner.BalanceSourceTypeInvoice.String(), uuid.New())

	invoice := createConfirmedInvoice(customer, "INV-000001", 100, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	mocks.paymentRepo.On("GeneratePaymentNumber", mock.Anything).Return("PAY-000002", nil)
	mocks.invoiceRepo.On("FindOutstandingByCustomer", mock.Anything, customer.ID).Return([]*billing.Invoice{invoice}, nil)
	mocks.balanceTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*partner.BalanceTransaction")).Return(nil)
	mocks.customerRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)
	mocks.invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	mocks.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromInt(130),
		PaymentMethod: billing.PaymentMethodBank.String(),
		AutoAllocate:  true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	data := response["data"].(map[string]interface{})
	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, "100", payment["allocated_amount"])
	assert.Equal(t, "30", payment["surplus_amount"])

	// Surplus lands on the balance: 100 - 130 = -30 (customer in credit)
	assert.Equal(t, "-30", data["customer_balance"])

	mocks.paymentRepo.AssertExpectations(t)
}

func TestPaymentHandler_Collect_ManualExceedsRemaining(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	invoice := createConfirmedInvoice(customer, "INV-000001", 150, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	mocks.paymentRepo.On("GeneratePaymentNumber", mock.Anything).Return("PAY-000003", nil)
	mocks.invoiceRepo.On("FindOutstandingByCustomer", mock.Anything, customer.ID).Return([]*billing.Invoice{invoice}, nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromInt(200),
		PaymentMethod: billing.PaymentMethodCash.String(),
		Allocations: []billingapp.ManualAllocationInput{
			{InvoiceID: invoice.ID, Amount: decimal.NewFromInt(200)},
		},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPaymentHandler_Collect_UnknownMethod(t *testing.T) {
	handler, _ := setupPaymentHandler()

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    uuid.New(),
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "BITCOIN",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_Collect_CustomerNotFound(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customerID := uuid.New()
	mocks.customerRepo.On("FindByID", mock.Anything, customerID).Return(nil, nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customerID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: billing.PaymentMethodCash.String(),
		AutoAllocate:  true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mocks.customerRepo.AssertExpectations(t)
}

func TestPaymentHandler_Collect_IdempotentReplay(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	payment, _ := billing.NewPayment(
		"PAY-000001",
		customer.ID,
		customer.Name,
		valueobject.NewMoneyEGP(decimal.NewFromInt(120)),
		billing.PaymentMethodCash,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)

	mocks.idempotencyStore.On("Lookup", mock.Anything, "retry-key-1").Return(payment.ID.String(), true, nil)
	mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromInt(120),
		PaymentMethod: billing.PaymentMethodCash.String(),
		AutoAllocate:  true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, "retry-key-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// A replay returns the original result with 200, not 201
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, true, data["replayed"])

	mocks.idempotencyStore.AssertExpectations(t)
	mocks.paymentRepo.AssertExpectations(t)
}

func TestPaymentHandler_Collect_FreshKeyRecorded(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	_ = customer.IncreaseBalance(decimal.NewFromInt(100), partner.BalanceSourceTypeInvoice.String(), uuid.New())
	invoice := createConfirmedInvoice(customer, "INV-000001", 100, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	mocks.idempotencyStore.On("Lookup", mock.Anything, "fresh-key-1").Return("", false, nil)
	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	mocks.paymentRepo.On("GeneratePaymentNumber", mock.Anything).Return("PAY-000004", nil)
	mocks.invoiceRepo.On("FindOutstandingByCustomer", mock.Anything, customer.ID).Return([]*billing.Invoice{invoice}, nil)
	mocks.balanceTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*partner.BalanceTransaction")).Return(nil)
	mocks.customerRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)
	mocks.invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	mocks.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	mocks.idempotencyStore.On("Record", mock.Anything, "fresh-key-1", mock.AnythingOfType("string"), 24*time.Hour).Return(true, nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.CollectPaymentRequest{
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: billing.PaymentMethodCard.String(),
		AutoAllocate:  true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, "fresh-key-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mocks.idempotencyStore.AssertExpectations(t)
}

func TestPaymentHandler_Preview_Success(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	invoice := createConfirmedInvoice(customer, "INV-000001", 100, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	mocks.customerRepo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	mocks.invoiceRepo.On("FindOutstandingByCustomer", mock.Anything, customer.ID).Return([]*billing.Invoice{invoice}, nil)

	router := setupPaymentRouter(handler)

	reqBody := billingapp.PreviewAllocationRequest{
		CustomerID:   customer.ID,
		Amount:       decimal.NewFromInt(130),
		AutoAllocate: true,
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/payments/preview", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "100", data["total_allocated"])
	assert.Equal(t, "30", data["surplus"])

	// A preview never writes anything
	mocks.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mocks.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	mocks.customerRepo.AssertExpectations(t)
	mocks.invoiceRepo.AssertExpectations(t)
}

func TestPaymentHandler_GetByID_InvalidID(t *testing.T) {
	handler, _ := setupPaymentHandler()

	router := setupPaymentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_GetByNumber_NotFound(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	mocks.paymentRepo.On("FindByNumber", mock.Anything, "PAY-999999").Return(nil, nil)

	router := setupPaymentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/payments/number/PAY-999999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mocks.paymentRepo.AssertExpectations(t)
}

func TestPaymentHandler_List_Success(t *testing.T) {
	handler, mocks := setupPaymentHandler()

	customer := createTestCustomer()
	payment, _ := billing.NewPayment(
		"PAY-000001",
		customer.ID,
		customer.Name,
		valueobject.NewMoneyEGP(decimal.NewFromInt(120)),
		billing.PaymentMethodCash,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)

	mocks.paymentRepo.On("FindAll", mock.Anything, mock.AnythingOfType("billing.PaymentFilter")).
		Return([]*billing.Payment{payment}, int64(1), nil)

	router := setupPaymentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/payments?page=1&page_size=20", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.True(t, response["success"].(bool))
	assert.NotNil(t, response["meta"])

	mocks.paymentRepo.AssertExpectations(t)
}
