package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/interfaces/http/dto"
	"github.com/arledger/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlerContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*gin.Context)
		expected string
	}{
		{"from context", func(c *gin.Context) {
			c.Set(RequestIDKey, "ctx-request-id")
		}, "ctx-request-id"},
		{"from header when context empty", func(c *gin.Context) {
			c.Request.Header.Set(RequestIDKey, "header-request-id")
		}, "header-request-id"},
		{"context wins over header", func(c *gin.Context) {
			c.Set(RequestIDKey, "ctx-id")
			c.Request.Header.Set(RequestIDKey, "header-id")
		}, "ctx-id"},
		{"empty when unset", func(c *gin.Context) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newHandlerContext(t)
			tt.setup(c)
			assert.Equal(t, tt.expected, getRequestID(c))
		})
	}
}

func TestBaseHandler_SuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("Success", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.Success(c, map[string]string{"invoice_number": "INV-20260801-00001"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("SuccessWithMeta", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.SuccessWithMeta(c, []string{"INV-1", "INV-2"}, 57, 2, 20)

		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(57), resp.Meta.Total)
	})

	t.Run("Created", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.Created(c, map[string]string{"id": "0198e2f0"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("NoContent", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.NoContent(c)
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})
}

func TestBaseHandler_ErrorHelpers(t *testing.T) {
	tests := []struct {
		name         string
		call         func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{"BadRequest", func(h *BaseHandler, c *gin.Context) {
			h.BadRequest(c, "invalid invoice id")
		}, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"NotFound", func(h *BaseHandler, c *gin.Context) {
			h.NotFound(c, "invoice not found")
		}, http.StatusNotFound, dto.ErrCodeNotFound},
		{"Conflict", func(h *BaseHandler, c *gin.Context) {
			h.Conflict(c, "payment number already taken")
		}, http.StatusConflict, dto.ErrCodeConflict},
		{"InternalError", func(h *BaseHandler, c *gin.Context) {
			h.InternalError(c, "server error")
		}, http.StatusInternalServerError, dto.ErrCodeInternal},
		{"TooManyRequests", func(h *BaseHandler, c *gin.Context) {
			h.TooManyRequests(c, "rate limit exceeded")
		}, http.StatusTooManyRequests, dto.ErrCodeRateLimited},
		{"UnprocessableEntity", func(h *BaseHandler, c *gin.Context) {
			h.UnprocessableEntity(c, dto.ErrCodeBusinessRule, "invoice already paid")
		}, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newHandlerContext(t)

			tt.call(h, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandler_ErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newHandlerContext(t)
	c.Set(RequestIDKey, "req-collections-42")

	h.BadRequest(c, "invalid amount")

	assert.Equal(t, "req-collections-42", decodeResponse(t, w).Error.RequestID)
}

func TestBaseHandler_ErrorWithCode(t *testing.T) {
	h := &BaseHandler{}
	c, w := newHandlerContext(t)

	h.ErrorWithCode(c, dto.ErrCodeInsufficientRemaining, "Allocation exceeds remaining amount")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInsufficientRemaining, decodeResponse(t, w).Error.Code)
}

func TestBaseHandler_ValidationError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newHandlerContext(t)
	c.Set(RequestIDKey, "req-val-7")

	h.ValidationError(c, []dto.ValidationDetail{
		{Field: "amount", Message: "Must be positive"},
		{Field: "customer_id", Message: "Required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-val-7", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
}

func TestBaseHandler_BindingError(t *testing.T) {
	middleware.SetupValidator()
	h := &BaseHandler{}

	r := gin.New()
	r.POST("/api/v1/payments", func(c *gin.Context) {
		var req struct {
			CustomerID string `json:"customer_id" binding:"required,uuid"`
			Amount     string `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing fields become validation details", func(t *testing.T) {
		w := post(`{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "customer_id")
		assert.Contains(t, fields, "amount")
	})

	t.Run("tag messages are readable", func(t *testing.T) {
		w := post(`{"customer_id": "not-a-uuid", "amount": "50"}`)

		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "customer_id", resp.Error.Details[0].Field)
		assert.Equal(t, "Invalid UUID format", resp.Error.Details[0].Message)
	})

	t.Run("malformed json falls back to bad request", func(t *testing.T) {
		w := post(`{"customer_id": `)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("valid body passes", func(t *testing.T) {
		w := post(`{"customer_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "amount": "50"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"concurrent modification alias", shared.NewDomainError("CONCURRENT_MODIFICATION", "Record was modified concurrently"), http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"insufficient remaining", shared.ErrInsufficientRemaining, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientRemaining},
		{"field validation", shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newHandlerContext(t)

			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandler_HandleDomainError_UnknownError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newHandlerContext(t)

	h.HandleDomainError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.HandleError(c, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("wrapped domain error unwraps", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.HandleError(c, fmt.Errorf("loading invoice: %w", shared.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("plain error becomes 500", func(t *testing.T) {
		c, w := newHandlerContext(t)
		h.HandleError(c, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
