package billing

import (
	"context"
	"fmt"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocator is a domain service that distributes a payment across a
// customer's outstanding invoices. It ensures that:
//  1. Allocations never exceed an invoice's remaining amount
//  2. Total allocated never exceeds the payment amount
//  3. Payment and invoice states are updated consistently
//
// Manual requests take precedence; when auto-allocation is also requested
// the leftover payment amount is consumed FIFO across the invoices not
// named manually. The allocator recomputes against the live invoice
// snapshot it is given - callers must load that snapshot inside the same
// transaction that commits the result.
type PaymentAllocator struct {
	strategyFactory *AllocationStrategyFactory
}

// NewPaymentAllocator creates a new payment allocator
func NewPaymentAllocator() *PaymentAllocator {
	return &PaymentAllocator{
		strategyFactory: NewAllocationStrategyFactory(),
	}
}

// AllocatePaymentRequest carries a payment and the customer's outstanding
// invoice snapshot into the allocator
type AllocatePaymentRequest struct {
	Payment  *Payment
	Invoices []*Invoice
	// ManualRequests are applied first, in order, all-or-nothing
	ManualRequests []ManualAllocationRequest
	// AutoAllocate consumes any leftover amount FIFO after manual requests
	AutoAllocate bool
}

// AllocatePaymentResult is the outcome of a successful allocation
type AllocatePaymentResult struct {
	Payment         *Payment            // Payment with its allocations attached
	UpdatedInvoices []*Invoice          // Invoices whose paid amounts changed
	Allocations     []PaymentAllocation // Allocations that were made
	TotalAllocated  decimal.Decimal     // Total amount attributed to invoices
	Surplus         decimal.Decimal     // Amount left unattributed
	FullyAllocated  bool                // True if the whole payment was attributed
}

// AllocatePayment distributes the payment across the outstanding invoices.
// A result with zero allocations is valid: a payment with no outstanding
// invoices (or neither manual requests nor auto-allocation) is recorded
// with its full amount as surplus.
func (s *PaymentAllocator) AllocatePayment(ctx context.Context, req AllocatePaymentRequest) (*AllocatePaymentResult, error) {
	if req.Payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if req.Payment.UnallocatedAmount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("NO_UNALLOCATED", "Payment has no unallocated amount")
	}

	// Only the payer's own payable invoices are candidates; the caller's
	// ordering is never trusted
	candidates := make(map[uuid.UUID]*Invoice)
	targets := make([]AllocationTarget, 0, len(req.Invoices))
	for _, inv := range req.Invoices {
		if inv.CustomerID == req.Payment.CustomerID && inv.IsOutstanding() {
			candidates[inv.ID] = inv
			targets = append(targets, AllocationTarget{
				ID:              inv.ID,
				Number:          inv.InvoiceNumber,
				RemainingAmount: inv.RemainingAmount,
				InvoiceDate:     inv.InvoiceDate,
			})
		}
	}

	// Any manual request naming an invoice outside the candidate set fails
	// the whole call before anything is applied
	for _, mr := range req.ManualRequests {
		if _, ok := candidates[mr.InvoiceID]; !ok {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Invoice %s is not an outstanding invoice of this customer", mr.InvoiceID))
		}
	}

	result := &AllocatePaymentResult{
		Payment:         req.Payment,
		UpdatedInvoices: make([]*Invoice, 0),
		Allocations:     make([]PaymentAllocation, 0),
		TotalAllocated:  decimal.Zero,
	}

	if len(req.ManualRequests) > 0 {
		manual := s.strategyFactory.CreateManualStrategy(req.ManualRequests)
		plan, err := manual.Allocate(valueobject.NewMoneyEGP(req.Payment.UnallocatedAmount()), targets)
		if err != nil {
			return nil, err
		}
		if err := s.applyPlan(req.Payment, candidates, plan, result); err != nil {
			return nil, err
		}
	}

	if req.AutoAllocate && req.Payment.UnallocatedAmount().IsPositive() {
		// FIFO over the invoices not already covered by a manual request,
		// against their live remaining amounts
		autoTargets := make([]AllocationTarget, 0, len(candidates))
		for id, inv := range candidates {
			if req.Payment.GetAllocationByInvoiceID(id) != nil {
				continue
			}
			if !inv.RemainingAmount.IsPositive() {
				continue
			}
			autoTargets = append(autoTargets, AllocationTarget{
				ID:              inv.ID,
				Number:          inv.InvoiceNumber,
				RemainingAmount: inv.RemainingAmount,
				InvoiceDate:     inv.InvoiceDate,
			})
		}

		if len(autoTargets) > 0 {
			fifo := s.strategyFactory.CreateFIFOStrategy()
			plan, err := fifo.Allocate(valueobject.NewMoneyEGP(req.Payment.UnallocatedAmount()), autoTargets)
			if err != nil {
				return nil, err
			}
			if err := s.applyPlan(req.Payment, candidates, plan, result); err != nil {
				return nil, err
			}
		}
	}

	result.Surplus = req.Payment.SurplusAmount
	result.FullyAllocated = req.Payment.IsFullyAllocated()

	return result, nil
}

// PreviewPayment calculates what allocations would be made without
// mutating the payment or the invoices
func (s *PaymentAllocator) PreviewPayment(ctx context.Context, amount valueobject.Money, invoices []*Invoice, manualRequests []ManualAllocationRequest, autoAllocate bool) (*AllocationPlan, error) {
	targets := make([]AllocationTarget, 0, len(invoices))
	for _, inv := range invoices {
		if inv.IsOutstanding() {
			targets = append(targets, AllocationTarget{
				ID:              inv.ID,
				Number:          inv.InvoiceNumber,
				RemainingAmount: inv.RemainingAmount,
				InvoiceDate:     inv.InvoiceDate,
			})
		}
	}

	if len(manualRequests) > 0 {
		manual := s.strategyFactory.CreateManualStrategy(manualRequests)
		plan, err := manual.Allocate(amount, targets)
		if err != nil {
			return nil, err
		}
		if !autoAllocate || plan.RemainingAmount.IsZero() {
			return plan, nil
		}
		// Continue FIFO over the leftover; the manual pass already reduced
		// the targets' remaining amounts in place
		leftover := make([]AllocationTarget, 0, len(targets))
		named := make(map[uuid.UUID]bool, len(manualRequests))
		for _, mr := range manualRequests {
			named[mr.InvoiceID] = true
		}
		for _, t := range targets {
			if !named[t.ID] && t.RemainingAmount.IsPositive() {
				leftover = append(leftover, t)
			}
		}
		if len(leftover) == 0 {
			return plan, nil
		}
		fifo := s.strategyFactory.CreateFIFOStrategy()
		tail, err := fifo.Allocate(valueobject.NewMoneyEGP(plan.RemainingAmount), leftover)
		if err != nil {
			return nil, err
		}
		return mergePlans(plan, tail), nil
	}

	if autoAllocate {
		fifo := s.strategyFactory.CreateFIFOStrategy()
		return fifo.Allocate(amount, targets)
	}

	return emptyPlan(amount.Amount()), nil
}

// applyPlan applies a computed plan to the payment and invoice aggregates
func (s *PaymentAllocator) applyPlan(payment *Payment, invoices map[uuid.UUID]*Invoice, plan *AllocationPlan, result *AllocatePaymentResult) error {
	for _, alloc := range plan.Allocations {
		invoice, exists := invoices[alloc.InvoiceID]
		if !exists {
			continue
		}

		allocAmount := valueobject.NewMoneyEGP(alloc.Amount)

		allocation, err := payment.AllocateToInvoice(invoice.ID, invoice.InvoiceNumber, allocAmount)
		if err != nil {
			return fmt.Errorf("failed to allocate to invoice %s: %w", invoice.InvoiceNumber, err)
		}
		result.Allocations = append(result.Allocations, *allocation)

		if err := invoice.ApplyPayment(allocAmount, payment.ID); err != nil {
			return fmt.Errorf("failed to apply payment to invoice %s: %w", invoice.InvoiceNumber, err)
		}
		result.UpdatedInvoices = append(result.UpdatedInvoices, invoice)
	}

	result.TotalAllocated = result.TotalAllocated.Add(plan.TotalAllocated)
	return nil
}

func mergePlans(head, tail *AllocationPlan) *AllocationPlan {
	return &AllocationPlan{
		Allocations:        append(append([]AllocationResult{}, head.Allocations...), tail.Allocations...),
		TotalAllocated:     head.TotalAllocated.Add(tail.TotalAllocated),
		RemainingAmount:    tail.RemainingAmount,
		FullyAllocated:     tail.RemainingAmount.IsZero(),
		InvoicesFullyPaid:  append(append([]uuid.UUID{}, head.InvoicesFullyPaid...), tail.InvoicesFullyPaid...),
		InvoicesPartlyPaid: append(append([]uuid.UUID{}, head.InvoicesPartlyPaid...), tail.InvoicesPartlyPaid...),
	}
}
