package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	partnerapp "github.com/arledger/backend/internal/application/partner"
	"github.com/arledger/backend/internal/domain/partner"
)

// CustomerHandler exposes the customer endpoints, including the balance
// ledger that collection workflows read from.
type CustomerHandler struct {
	BaseHandler
	customerService *partnerapp.CustomerService
}

func NewCustomerHandler(customerService *partnerapp.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	customers.POST("", h.Create)
	customers.GET("", h.List)
	customers.GET("/:id", h.GetByID)
	customers.GET("/code/:code", h.GetByCode)
	customers.PUT("/:id", h.Update)
	customers.POST("/:id/activate", h.Activate)
	customers.POST("/:id/deactivate", h.Deactivate)
	customers.GET("/:id/balance-history", h.GetBalanceHistory)
}

// customerIDParam parses the :id path segment, answering 400 itself when
// the value is not a UUID.
func (h *CustomerHandler) customerIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return uuid.Nil, false
	}
	return id, true
}

// ListCustomersQuery filters the customer list endpoint.
type ListCustomersQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// BalanceHistoryQuery filters a customer's balance ledger.
type BalanceHistoryQuery struct {
	Type       string `form:"type" binding:"omitempty,oneof=INVOICE PAYMENT REVERSAL ADJUSTMENT"`
	SourceType string `form:"source_type" binding:"omitempty,oneof=INVOICE PAYMENT MANUAL"`
	DateFrom   string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// Create godoc
// @ID           createCustomer
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body partnerapp.CreateCustomerRequest true "Customer creation request"
// @Success      201 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req partnerapp.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, customer)
}

// GetByID godoc
// @ID           getCustomerById
// @Summary      Get a customer by ID
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetByID(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	customer, err := h.customerService.Get(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, customer)
}

// GetByCode godoc
// @ID           getCustomerByCode
// @Summary      Get a customer by code
// @Tags         customers
// @Produce      json
// @Param        code path string true "Customer Code"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/code/{code} [get]
func (h *CustomerHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Customer code is required")
		return
	}

	customer, err := h.customerService.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, customer)
}

// List godoc
// @ID           listCustomers
// @Summary      List customers
// @Description  Paginated customer list, filterable by status and a search term over name, code, phone and email
// @Tags         customers
// @Produce      json
// @Param        search query string false "Search term"
// @Param        status query string false "Customer status" Enums(ACTIVE, INACTIVE)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var query ListCustomersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.customerService.List(c.Request.Context(), partnerapp.ListCustomersRequest{
		Status:   query.Status,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @ID           updateCustomer
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.UpdateCustomerRequest true "Customer update request"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	var req partnerapp.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customer, err := h.customerService.Update(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, customer)
}

// Activate godoc
// @ID           activateCustomer
// @Summary      Activate a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id}/activate [post]
func (h *CustomerHandler) Activate(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	customer, err := h.customerService.Activate(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, customer)
}

// Deactivate godoc
// @ID           deactivateCustomer
// @Summary      Deactivate a customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id}/deactivate [post]
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	customer, err := h.customerService.Deactivate(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, customer)
}

// GetBalanceHistory godoc
// @ID           getCustomerBalanceHistory
// @Summary      Get a customer's balance ledger
// @Description  Balance ledger entries for a customer, newest first
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        type query string false "Transaction type" Enums(INVOICE, PAYMENT, REVERSAL, ADJUSTMENT)
// @Param        source_type query string false "Source type" Enums(INVOICE, PAYMENT, MANUAL)
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]partnerapp.BalanceTransactionResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id}/balance-history [get]
func (h *CustomerHandler) GetBalanceHistory(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	var query BalanceHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	filter := partner.BalanceTransactionFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Type != "" {
		txType := partner.BalanceTransactionType(query.Type)
		filter.TransactionType = &txType
	}
	if query.SourceType != "" {
		sourceType := partner.BalanceTransactionSourceType(query.SourceType)
		filter.SourceType = &sourceType
	}
	if from, ok := parseDateParam(query.DateFrom); ok {
		filter.DateFrom = from
	}
	if to, ok := parseDateParam(query.DateTo); ok {
		filter.DateTo = to
	}

	result, err := h.customerService.GetBalanceHistory(c.Request.Context(), customerID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}
