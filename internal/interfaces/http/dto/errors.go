package dto

import (
	"net/http"
	"strings"
)

// Error codes exposed at the HTTP boundary. Domain errors carry their own
// codes (NOT_FOUND, INSUFFICIENT_REMAINING, ...) which NormalizeErrorCode
// folds into this set before a response is written.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeBusinessRule          = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientRemaining = "ERR_INSUFFICIENT_REMAINING"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

var errorCodeStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule violations are well-formed requests the ledger refuses.
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:          http.StatusUnprocessableEntity,
	ErrCodeInsufficientRemaining: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus maps a normalized error code to its status, defaulting to
// 500 for codes the boundary does not recognize.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var domainErrorCodes = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,

	"CONCURRENT_MODIFICATION": ErrCodeConcurrencyConflict,
	"CONCURRENCY_CONFLICT":    ErrCodeConcurrencyConflict,

	"INVALID_STATE":     ErrCodeInvalidState,
	"ALREADY_ACTIVE":    ErrCodeInvalidState,
	"ALREADY_INACTIVE":  ErrCodeInvalidState,
	"HAS_PAYMENTS":      ErrCodeInvalidState,
	"ALREADY_ALLOCATED": ErrCodeInvalidState,
	"NO_UNALLOCATED":    ErrCodeInvalidState,

	"INSUFFICIENT_REMAINING": ErrCodeInsufficientRemaining,
	"EXCEEDS_PAYMENT":        ErrCodeBusinessRule,
	"EXCEEDS_UNALLOCATED":    ErrCodeBusinessRule,

	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode translates a domain error code to the boundary set.
// The INVALID_<FIELD> family collapses to ERR_VALIDATION; unmapped codes
// pass through unchanged so GetHTTPStatus falls back to 500.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainErrorCodes[code]; ok {
		return mapped
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeValidation
	}
	return code
}
