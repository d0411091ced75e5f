package handler

import (
	billingapp "github.com/arledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// RegisterRoutes registers invoice routes on the API group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.GetByID)
		invoices.GET("/number/:number", h.GetByNumber)
		invoices.POST("/:id/confirm", h.Confirm)
		invoices.POST("/:id/cancel", h.Cancel)
	}
	rg.GET("/customers/:id/outstanding-invoices", h.ListOutstanding)
}

// CancelInvoiceRequest represents a request to cancel an invoice
// @Description Request body for cancelling an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Issued in error"`
}

// Create godoc
// @ID           createInvoice
// @Summary      Create a draft invoice
// @Description  Create a new invoice in DRAFT status. Draft invoices do not affect the customer balance until confirmed.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req billingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID godoc
// @ID           getInvoiceById
// @Summary      Get invoice by ID
// @Description  Retrieve an invoice by its ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber godoc
// @ID           getInvoiceByNumber
// @Summary      Get invoice by number
// @Description  Retrieve an invoice by its invoice number
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice Number"
// @Success      200 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices/number/{number} [get]
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Invoice number is required")
		return
	}

	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Description  Retrieve a paginated list of invoices with optional filtering
// @Tags         invoices
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        status query string false "Invoice status" Enums(DRAFT, CONFIRMED, PARTIALLY_PAID, PAID, CANCELLED)
// @Param        date_from query string false "Start invoice date (YYYY-MM-DD)"
// @Param        date_to query string false "End invoice date (YYYY-MM-DD)"
// @Param        overdue_only query bool false "Only overdue invoices"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var query struct {
		CustomerID  string `form:"customer_id" binding:"omitempty,uuid"`
		Status      string `form:"status" binding:"omitempty,oneof=DRAFT CONFIRMED PARTIALLY_PAID PAID CANCELLED"`
		DateFrom    string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
		DateTo      string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
		OverdueOnly bool   `form:"overdue_only"`
		Page        int    `form:"page" binding:"omitempty,min=1"`
		PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	req := billingapp.ListInvoicesRequest{
		Status:      query.Status,
		OverdueOnly: query.OverdueOnly,
		Page:        query.Page,
		PageSize:    query.PageSize,
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

	result, err := h.invoiceService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Confirm godoc
// @ID           confirmInvoice
// @Summary      Confirm a draft invoice
// @Description  Confirm a DRAFT invoice, raising the customer's outstanding balance and making the invoice eligible for payment allocation
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices/{id}/confirm [post]
func (h *InvoiceHandler) Confirm(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.Confirm(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel godoc
// @ID           cancelInvoice
// @Summary      Cancel an invoice
// @Description  Cancel a DRAFT or CONFIRMED invoice. Cancelling a confirmed invoice reverses its effect on the customer balance. Invoices with payments applied cannot be cancelled.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body CancelInvoiceRequest false "Cancellation reason"
// @Success      200 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req CancelInvoiceRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), invoiceID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListOutstanding godoc
// @ID           listOutstandingInvoices
// @Summary      List outstanding invoices for a customer
// @Description  Retrieve the customer's unpaid invoices in allocation order (oldest invoice date first)
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[[]billingapp.InvoiceResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /customers/{id}/outstanding-invoices [get]
func (h *InvoiceHandler) ListOutstanding(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	invoices, err := h.invoiceService.ListOutstanding(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoices)
}
