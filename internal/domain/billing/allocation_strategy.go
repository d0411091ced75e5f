package billing

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines the type of allocation strategy
type AllocationStrategyType string

const (
	AllocationStrategyTypeFIFO   AllocationStrategyType = "FIFO"   // Oldest invoices first by invoice date
	AllocationStrategyTypeManual AllocationStrategyType = "MANUAL" // Caller-specified allocations
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	switch t {
	case AllocationStrategyTypeFIFO, AllocationStrategyTypeManual:
		return true
	}
	return false
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllAllocationStrategyTypes returns all valid allocation strategy types
func AllAllocationStrategyTypes() []AllocationStrategyType {
	return []AllocationStrategyType{
		AllocationStrategyTypeFIFO,
		AllocationStrategyTypeManual,
	}
}

// AllocationTarget is a snapshot of an outstanding invoice a payment can
// be allocated against.
type AllocationTarget struct {
	ID              uuid.UUID       // Invoice ID
	Number          string          // Invoice number for display purposes
	RemainingAmount decimal.Decimal // Amount still outstanding
	InvoiceDate     time.Time       // FIFO ordering key
}

// AllocationResult represents the result of a single allocation
type AllocationResult struct {
	InvoiceID     uuid.UUID       // Target invoice
	InvoiceNumber string          // Invoice number
	Amount        decimal.Decimal // Amount to allocate
}

// AllocationPlan is the complete result produced by an allocation strategy.
// It is a pure computation over a target snapshot; applying the plan to the
// aggregates happens in PaymentAllocator.
type AllocationPlan struct {
	Allocations        []AllocationResult // List of allocations to make
	TotalAllocated     decimal.Decimal    // Total amount allocated
	RemainingAmount    decimal.Decimal    // Amount left unallocated (the payment surplus)
	FullyAllocated     bool               // True if all amount was allocated
	InvoicesFullyPaid  []uuid.UUID        // Invoices the plan pays off in full
	InvoicesPartlyPaid []uuid.UUID        // Invoices the plan pays partially
}

// AllocationStrategy computes an allocation of a payment amount across
// outstanding invoice targets
type AllocationStrategy interface {
	// Name returns the strategy name
	Name() string
	// StrategyType returns the allocation strategy type
	StrategyType() AllocationStrategyType
	// Allocate calculates how to allocate the given amount across targets
	Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error)
}

// FIFOAllocationStrategy allocates to the oldest outstanding invoices
// first: ascending invoice date, ties broken by invoice ID ascending.
// The result is deterministic regardless of the input order of targets.
type FIFOAllocationStrategy struct{}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{}
}

// Name returns the strategy name
func (s *FIFOAllocationStrategy) Name() string {
	return "fifo_allocation"
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeFIFO
}

// Allocate consumes the amount greedily across targets in FIFO order
func (s *FIFOAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if len(targets) == 0 {
		return emptyPlan(amount.Amount()), nil
	}

	// Never trust caller-supplied order: re-sort by invoice date, then ID
	sortedTargets := make([]AllocationTarget, len(targets))
	copy(sortedTargets, targets)
	sort.Slice(sortedTargets, func(i, j int) bool {
		if !sortedTargets[i].InvoiceDate.Equal(sortedTargets[j].InvoiceDate) {
			return sortedTargets[i].InvoiceDate.Before(sortedTargets[j].InvoiceDate)
		}
		return bytes.Compare(sortedTargets[i].ID[:], sortedTargets[j].ID[:]) < 0
	})

	allocations := make([]AllocationResult, 0)
	fullyPaid := make([]uuid.UUID, 0)
	partlyPaid := make([]uuid.UUID, 0)
	remaining := amount.Amount()
	totalAllocated := decimal.Zero

	for _, target := range sortedTargets {
		if remaining.IsZero() {
			break
		}
		if target.RemainingAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		allocAmount := decimal.Min(remaining, target.RemainingAmount)

		allocations = append(allocations, AllocationResult{
			InvoiceID:     target.ID,
			InvoiceNumber: target.Number,
			Amount:        allocAmount,
		})

		totalAllocated = totalAllocated.Add(allocAmount)
		remaining = remaining.Sub(allocAmount)

		if allocAmount.GreaterThanOrEqual(target.RemainingAmount) {
			fullyPaid = append(fullyPaid, target.ID)
		} else {
			partlyPaid = append(partlyPaid, target.ID)
		}
	}

	return &AllocationPlan{
		Allocations:        allocations,
		TotalAllocated:     totalAllocated,
		RemainingAmount:    remaining,
		FullyAllocated:     remaining.IsZero(),
		InvoicesFullyPaid:  fullyPaid,
		InvoicesPartlyPaid: partlyPaid,
	}, nil
}

// ManualAllocationRequest is a caller-specified allocation against one invoice
type ManualAllocationRequest struct {
	InvoiceID uuid.UUID       // Target invoice
	Amount    decimal.Decimal // Amount to allocate, must be positive
}

// ManualAllocationStrategy allocates exactly what the caller requested.
// Unlike FIFO it does not cap or skip: a request naming an unknown invoice
// or exceeding a remaining amount fails the whole plan, so the payment is
// rejected all-or-nothing.
type ManualAllocationStrategy struct {
	requests []ManualAllocationRequest
}

// NewManualAllocationStrategy creates a new manual allocation strategy
func NewManualAllocationStrategy(requests []ManualAllocationRequest) *ManualAllocationStrategy {
	return &ManualAllocationStrategy{requests: requests}
}

// Name returns the strategy name
func (s *ManualAllocationStrategy) Name() string {
	return "manual_allocation"
}

// StrategyType returns the allocation strategy type
func (s *ManualAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeManual
}

// GetRequests returns the configured manual allocation requests
func (s *ManualAllocationStrategy) GetRequests() []ManualAllocationRequest {
	return s.requests
}

// Allocate validates and applies the manual requests in order
func (s *ManualAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if len(s.requests) == 0 {
		return nil, shared.NewDomainError("INVALID_ALLOCATIONS", "Manual allocation requires at least one request")
	}

	// Track live remaining per target so repeated requests against one
	// invoice are caught against the post-allocation remaining amount
	targetMap := make(map[uuid.UUID]*AllocationTarget, len(targets))
	for i := range targets {
		targetMap[targets[i].ID] = &targets[i]
	}

	allocations := make([]AllocationResult, 0, len(s.requests))
	fullyPaid := make([]uuid.UUID, 0)
	partlyPaid := make([]uuid.UUID, 0)
	remaining := amount.Amount()
	totalAllocated := decimal.Zero
	seen := make(map[uuid.UUID]bool, len(s.requests))

	for _, req := range s.requests {
		if !req.Amount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
		}

		target, exists := targetMap[req.InvoiceID]
		if !exists {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Invoice %s is not an outstanding invoice of this customer", req.InvoiceID))
		}
		if seen[req.InvoiceID] {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED",
				fmt.Sprintf("Duplicate allocation request for invoice %s", target.Number))
		}
		seen[req.InvoiceID] = true

		if req.Amount.GreaterThan(target.RemainingAmount) {
			return nil, shared.NewDomainError("INSUFFICIENT_REMAINING",
				fmt.Sprintf("Allocation %s exceeds remaining amount %s on invoice %s",
					req.Amount.StringFixed(2), target.RemainingAmount.StringFixed(2), target.Number))
		}
		if req.Amount.GreaterThan(remaining) {
			return nil, shared.NewDomainError("EXCEEDS_PAYMENT",
				fmt.Sprintf("Total manual allocations exceed the payment amount %s", amount.StringFixed(2)))
		}

		allocations = append(allocations, AllocationResult{
			InvoiceID:     target.ID,
			InvoiceNumber: target.Number,
			Amount:        req.Amount,
		})

		totalAllocated = totalAllocated.Add(req.Amount)
		remaining = remaining.Sub(req.Amount)

		if req.Amount.GreaterThanOrEqual(target.RemainingAmount) {
			fullyPaid = append(fullyPaid, target.ID)
		} else {
			partlyPaid = append(partlyPaid, target.ID)
		}

		target.RemainingAmount = target.RemainingAmount.Sub(req.Amount)
	}

	return &AllocationPlan{
		Allocations:        allocations,
		TotalAllocated:     totalAllocated,
		RemainingAmount:    remaining,
		FullyAllocated:     remaining.IsZero(),
		InvoicesFullyPaid:  fullyPaid,
		InvoicesPartlyPaid: partlyPaid,
	}, nil
}

func emptyPlan(amount decimal.Decimal) *AllocationPlan {
	return &AllocationPlan{
		Allocations:        make([]AllocationResult, 0),
		TotalAllocated:     decimal.Zero,
		RemainingAmount:    amount,
		FullyAllocated:     false,
		InvoicesFullyPaid:  make([]uuid.UUID, 0),
		InvoicesPartlyPaid: make([]uuid.UUID, 0),
	}
}

// AllocationStrategyFactory creates allocation strategies
type AllocationStrategyFactory struct{}

// NewAllocationStrategyFactory creates a new factory
func NewAllocationStrategyFactory() *AllocationStrategyFactory {
	return &AllocationStrategyFactory{}
}

// CreateFIFOStrategy creates a FIFO allocation strategy
func (f *AllocationStrategyFactory) CreateFIFOStrategy() *FIFOAllocationStrategy {
	return NewFIFOAllocationStrategy()
}

// CreateManualStrategy creates a manual allocation strategy with the given requests
func (f *AllocationStrategyFactory) CreateManualStrategy(requests []ManualAllocationRequest) *ManualAllocationStrategy {
	return NewManualAllocationStrategy(requests)
}

// GetStrategy returns a strategy by type
func (f *AllocationStrategyFactory) GetStrategy(strategyType AllocationStrategyType, requests []ManualAllocationRequest) (AllocationStrategy, error) {
	switch strategyType {
	case AllocationStrategyTypeFIFO:
		return f.CreateFIFOStrategy(), nil
	case AllocationStrategyTypeManual:
		if len(requests) == 0 {
			return nil, shared.NewDomainError("INVALID_ALLOCATIONS", "Manual strategy requires allocation requests")
		}
		return f.CreateManualStrategy(requests), nil
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type")
	}
}
