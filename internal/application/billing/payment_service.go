package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/arledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentServiceConfig tunes payment collection behavior
type PaymentServiceConfig struct {
	// ApplySurplusToBalance also credits any unallocated surplus against
	// the customer balance. Off by default: surplus stays recorded on the
	// payment only.
	ApplySurplusToBalance bool
	// IdempotencyTTL is how long a processed idempotency key is remembered
	IdempotencyTTL time.Duration
}

// DefaultPaymentServiceConfig returns the default collection behavior
func DefaultPaymentServiceConfig() PaymentServiceConfig {
	return PaymentServiceConfig{
		ApplySurplusToBalance: false,
		IdempotencyTTL:        24 * time.Hour,
	}
}

// PaymentService handles payment collection and the payment read side
type PaymentService struct {
	txScope          TransactionScope
	paymentRepo      billing.PaymentRepository
	invoiceRepo      billing.InvoiceRepository
	customerRepo     partner.CustomerRepository
	allocator        *billing.PaymentAllocator
	idempotencyStore shared.IdempotencyStore
	cfg              PaymentServiceConfig
	logger           *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txScope TransactionScope,
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	customerRepo partner.CustomerRepository,
	idempotencyStore shared.IdempotencyStore,
	cfg PaymentServiceConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		txScope:          txScope,
		paymentRepo:      paymentRepo,
		invoiceRepo:      invoiceRepo,
		customerRepo:     customerRepo,
		allocator:        billing.NewPaymentAllocator(),
		idempotencyStore: idempotencyStore,
		cfg:              cfg,
		logger:           logger,
	}
}

// CollectPayment records a customer payment and allocates it against the
// customer's outstanding invoices inside a single transaction. Manual
// allocations apply first; with auto_allocate the leftover is consumed
// FIFO by invoice date. Everything the call touches (payment, invoices,
// customer balance, ledger entry) commits or rolls back together.
func (s *PaymentService) CollectPayment(ctx context.Context, req CollectPaymentRequest) (*CollectPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "collect_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, req.PaymentMethod,
	)

	if req.IdempotencyKey != "" && s.idempotencyStore != nil {
		if replay, ok, err := s.replayByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			telemetry.AddEvent(span, "idempotent_replay", "payment_id", replay.Payment.ID.String())
			return replay, nil
		}
	}

	if err := s.validateCollectRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	method := billing.ParsePaymentMethod(req.PaymentMethod)
	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	manualRequests := make([]billing.ManualAllocationRequest, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		manualRequests = append(manualRequests, billing.ManualAllocationRequest{
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount,
		})
	}

	var result *CollectPaymentResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		customer, err := repos.CustomerRepo().FindByID(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to load customer: %w", err)
		}
		if customer == nil {
			return shared.NewDomainError("NOT_FOUND", "Customer not found")
		}

		paymentNumber, err := repos.PaymentRepo().GeneratePaymentNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate payment number: %w", err)
		}

		payment, err := billing.NewPayment(
			paymentNumber,
			customer.ID,
			customer.Name,
			valueobject.NewMoneyEGP(req.Amount),
			method,
			paymentDate,
		)
		if err != nil {
			return err
		}
		if req.Reference != "" {
			if err := payment.SetReference(req.Reference); err != nil {
				return err
			}
		}
		if req.Notes != "" {
			payment.SetNotes(req.Notes)
		}

		invoices, err := repos.InvoiceRepo().FindOutstandingByCustomer(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("failed to load outstanding invoices: %w", err)
		}

		allocResult, err := s.allocator.AllocatePayment(ctx, billing.AllocatePaymentRequest{
			Payment:        payment,
			Invoices:       invoices,
			ManualRequests: manualRequests,
			AutoAllocate:   req.AutoAllocate,
		})
		if err != nil {
			return err
		}

		balanceDelta := allocResult.TotalAllocated
		if s.cfg.ApplySurplusToBalance && allocResult.Surplus.IsPositive() {
			balanceDelta = balanceDelta.Add(allocResult.Surplus)
		}

		if balanceDelta.IsPositive() {
			balanceBefore := customer.Balance
			if err := customer.DecreaseBalance(balanceDelta, partner.BalanceSourceTypePayment.String(), payment.ID); err != nil {
				return err
			}

			ledgerEntry, err := partner.CreatePaymentTransaction(customer.ID, balanceDelta, balanceBefore, payment.ID)
			if err != nil {
				return err
			}
			ledgerEntry.WithReference(payment.PaymentNumber)

			if err := repos.BalanceTxRepo().Create(ctx, ledgerEntry); err != nil {
				return fmt.Errorf("failed to record balance transaction: %w", err)
			}

			// Optimistic lock on the customer guards the running balance
			// against a concurrent collection
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}
		}

		// Each updated invoice is saved with its version check so two
		// concurrent payments cannot both consume the same remaining amount
		for _, inv := range allocResult.UpdatedInvoices {
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}

		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		statusByInvoice := make(map[uuid.UUID]billing.InvoiceStatus, len(allocResult.UpdatedInvoices))
		paid, partial := 0, 0
		for _, inv := range allocResult.UpdatedInvoices {
			statusByInvoice[inv.ID] = inv.Status
			switch inv.Status {
			case billing.InvoiceStatusPaid:
				paid++
			case billing.InvoiceStatusPartiallyPaid:
				partial++
			}
		}

		result = &CollectPaymentResult{
			Payment:         ToPaymentResponse(payment, statusByInvoice),
			CustomerBalance: customer.Balance,
			InvoicesPaid:    paid,
			InvoicesPartial: partial,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotencyStore != nil {
		if _, err := s.idempotencyStore.Record(ctx, req.IdempotencyKey, result.Payment.ID.String(), s.cfg.IdempotencyTTL); err != nil {
			// The payment is committed; a failed idempotency write only
			// weakens replay protection
			s.logger.Warn("failed to record idempotency key",
				zap.String("payment_number", result.Payment.PaymentNumber),
				zap.Error(err))
		}
	}

	telemetry.AddEvent(span, "payment_collected",
		"payment_number", result.Payment.PaymentNumber,
		"allocated", result.Payment.AllocatedAmount.String(),
		"surplus", result.Payment.SurplusAmount.String(),
	)

	return result, nil
}

func (s *PaymentService) validateCollectRequest(req CollectPaymentRequest) error {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !billing.ParsePaymentMethod(req.PaymentMethod).IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD",
			fmt.Sprintf("Payment method %q is not supported", req.PaymentMethod))
	}
	for _, a := range req.Allocations {
		if a.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_AMOUNT", "Allocation amounts must be positive")
		}
	}
	return nil
}

// replayByIdempotencyKey returns the previously recorded result for a key
func (s *PaymentService) replayByIdempotencyKey(ctx context.Context, key string) (*CollectPaymentResult, bool, error) {
	paymentID, found, err := s.idempotencyStore.Lookup(ctx, key)
	if err != nil {
		// A degraded idempotency store must not block collection
		s.logger.Warn("idempotency lookup failed", zap.Error(err))
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}

	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, false, nil
	}
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if payment == nil {
		return nil, false, nil
	}

	customer, err := s.customerRepo.FindByID(ctx, payment.CustomerID)
	if err != nil {
		return nil, false, err
	}
	balance := decimal.Zero
	if customer != nil {
		balance = customer.Balance
	}

	return &CollectPaymentResult{
		Payment:         ToPaymentResponse(payment, nil),
		CustomerBalance: balance,
		Replayed:        true,
	}, true, nil
}

// PreviewAllocation computes the allocation a payment of the given amount
// would produce, without recording anything
func (s *PaymentService) PreviewAllocation(ctx context.Context, req PreviewAllocationRequest) (*PreviewAllocationResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}

	invoices, err := s.invoiceRepo.FindOutstandingByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	manualRequests := make([]billing.ManualAllocationRequest, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		manualRequests = append(manualRequests, billing.ManualAllocationRequest{
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount,
		})
	}

	plan, err := s.allocator.PreviewPayment(ctx, valueobject.NewMoneyEGP(req.Amount), invoices, manualRequests, req.AutoAllocate)
	if err != nil {
		return nil, err
	}

	allocations := make([]AllocationResponse, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		allocations = append(allocations, AllocationResponse{
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Amount:        a.Amount,
		})
	}

	return &PreviewAllocationResult{
		Allocations:    allocations,
		TotalAllocated: plan.TotalAllocated,
		Surplus:        plan.RemainingAmount,
	}, nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return ToPaymentResponse(payment, nil), nil
}

// GetPaymentByNumber retrieves a payment by its payment number
func (s *PaymentService) GetPaymentByNumber(ctx context.Context, paymentNumber string) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByNumber(ctx, paymentNumber)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return ToPaymentResponse(payment, nil), nil
}

// ListPayments retrieves payments matching the given criteria
func (s *PaymentService) ListPayments(ctx context.Context, req ListPaymentsRequest) (*shared.Paginated[*PaymentResponse], error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := billing.PaymentFilter{
		Filter:      shared.Filter{Page: page, PageSize: pageSize},
		CustomerID:  req.CustomerID,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		SurplusOnly: req.SurplusOnly,
	}
	if req.PaymentMethod != "" {
		method := billing.ParsePaymentMethod(req.PaymentMethod)
		if !method.IsValid() {
			return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD",
				fmt.Sprintf("Payment method %q is not supported", req.PaymentMethod))
		}
		filter.PaymentMethod = &method
	}

	payments, total, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = ToPaymentResponse(p, nil)
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}
