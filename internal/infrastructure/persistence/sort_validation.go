package persistence

import "strings"

// Sort parameters arrive from query strings and are concatenated into ORDER
// BY clauses, so both the field and the direction go through a whitelist
// before they get near SQL.

// Allowed sort fields per entity.
var (
	CustomerSortFields = map[string]bool{
		"id":           true,
		"created_at":   true,
		"updated_at":   true,
		"code":         true,
		"name":         true,
		"balance":      true,
		"credit_limit": true,
		"status":       true,
	}

	InvoiceSortFields = map[string]bool{
		"id":               true,
		"created_at":       true,
		"updated_at":       true,
		"invoice_number":   true,
		"invoice_date":     true,
		"due_date":         true,
		"total_amount":     true,
		"remaining_amount": true,
		"status":           true,
	}

	PaymentSortFields = map[string]bool{
		"id":             true,
		"created_at":     true,
		"updated_at":     true,
		"payment_number": true,
		"payment_date":   true,
		"amount":         true,
		"surplus_amount": true,
		"payment_method": true,
	}
)

// ValidateSortOrder normalizes the direction to ASC or DESC, defaulting to
// DESC for anything unrecognized.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when the whitelist allows it and
// defaultField otherwise.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SortClause combines both checks into a ready ORDER BY expression.
func SortClause(orderBy, orderDir string, allowedFields map[string]bool, defaultField string) string {
	return ValidateSortField(orderBy, allowedFields, defaultField) + " " + ValidateSortOrder(orderDir)
}
