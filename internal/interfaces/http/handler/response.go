package handler

import "github.com/arledger/backend/internal/interfaces/http/dto"

// APIResponse is the swagger schema for the envelope every endpoint returns.
// At runtime handlers build the untyped dto.Response; this generic mirror
// exists so the generated docs show the concrete data type per operation.
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the swagger schema for failure envelopes.
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is the swagger schema for data-less acknowledgements.
// @Description Simple success response without data
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// BalanceData is the swagger schema for the customer balance endpoint.
// @Description Customer outstanding balance
type BalanceData struct {
	Balance string `json:"balance"`
}
