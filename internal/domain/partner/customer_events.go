package partner

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

const AggregateTypeCustomer = "Customer"

const (
	EventTypeCustomerCreated        = "CustomerCreated"
	EventTypeCustomerBalanceChanged = "CustomerBalanceChanged"
)

// CustomerCreatedEvent is raised once per customer, from NewCustomer.
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
}

func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
	}
}

// CustomerBalanceChangedEvent is raised whenever the receivable balance
// moves. SourceType/SourceID point at the invoice or payment that caused
// the change.
type CustomerBalanceChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Code       string          `json:"code"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	SourceType string          `json:"source_type"`
	SourceID   uuid.UUID       `json:"source_id"`
}

func NewCustomerBalanceChangedEvent(customer *Customer, oldBalance, newBalance decimal.Decimal, sourceType string, sourceID uuid.UUID) *CustomerBalanceChangedEvent {
	return &CustomerBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerBalanceChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
		SourceType:      sourceType,
		SourceID:        sourceID,
	}
}
