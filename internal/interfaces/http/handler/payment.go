package handler

import (
	billingapp "github.com/arledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client-chosen key that makes payment
// collection safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler handles payment collection API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RegisterRoutes registers payment routes on the API group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Collect)
		payments.POST("/preview", h.Preview)
		payments.GET("", h.List)
		payments.GET("/:id", h.GetByID)
		payments.GET("/number/:number", h.GetByNumber)
	}
}

// Collect godoc
// @ID           collectPayment
// @Summary      Collect a customer payment
// @Description  Record a payment and allocate it against the customer's outstanding invoices. Manual allocations are applied first; with auto_allocate the remainder is spread oldest invoice first. Repeating a request with the same Idempotency-Key header returns the original result.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-chosen key for safe retries"
// @Param        request body billingapp.CollectPaymentRequest true "Payment collection request"
// @Success      201 {object} APIResponse[billingapp.CollectPaymentResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments [post]
func (h *PaymentHandler) Collect(c *gin.Context) {
	var req billingapp.CollectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.paymentService.CollectPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// A replayed request returns the previously recorded payment
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// Preview godoc
// @ID           previewAllocation
// @Summary      Preview a payment allocation
// @Description  Compute how a payment would be allocated against outstanding invoices without recording anything
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body billingapp.PreviewAllocationRequest true "Allocation preview request"
// @Success      200 {object} APIResponse[billingapp.PreviewAllocationResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments/preview [post]
func (h *PaymentHandler) Preview(c *gin.Context) {
	var req billingapp.PreviewAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.paymentService.PreviewAllocation(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID godoc
// @ID           getPaymentById
// @Summary      Get payment by ID
// @Description  Retrieve a payment with its allocations by ID
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[billingapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// GetByNumber godoc
// @ID           getPaymentByNumber
// @Summary      Get payment by number
// @Description  Retrieve a payment with its allocations by payment number
// @Tags         payments
// @Produce      json
// @Param        number path string true "Payment Number"
// @Success      200 {object} APIResponse[billingapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments/number/{number} [get]
func (h *PaymentHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Payment number is required")
		return
	}

	payment, err := h.paymentService.GetPaymentByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with optional filtering
// @Tags         payments
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        payment_method query string false "Payment method" Enums(cash, card, bank, check, credit)
// @Param        date_from query string false "Start payment date (YYYY-MM-DD)"
// @Param        date_to query string false "End payment date (YYYY-MM-DD)"
// @Param        surplus_only query bool false "Only payments with unallocated surplus"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]billingapp.PaymentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var query struct {
		CustomerID    string `form:"customer_id" binding:"omitempty,uuid"`
		PaymentMethod string `form:"payment_method" binding:"omitempty,oneof=cash card bank check credit"`
		DateFrom      string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
		DateTo        string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
		SurplusOnly   bool   `form:"surplus_only"`
		Page          int    `form:"page" binding:"omitempty,min=1"`
		PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	req := billingapp.ListPaymentsRequest{
		PaymentMethod: query.PaymentMethod,
		SurplusOnly:   query.SurplusOnly,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	if query.CustomerID != "" {
		customerID, err := uuid.Parse(query.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		req.CustomerID = &customerID
	}
	if from, ok := parseDateParam(query.DateFrom); ok {
		req.DateFrom = from
	}
	if to, ok := parseDateParam(query.DateTo); ok {
		req.DateTo = to
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}
