package billing

import (
	"context"
	"fmt"

	"github.com/arledger/backend/internal/domain/billing"
	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/arledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceService handles the invoice lifecycle: draft creation,
// confirmation (which raises the customer balance), cancellation (which
// reverses it) and the read side.
type InvoiceService struct {
	txScope      TransactionScope
	invoiceRepo  billing.InvoiceRepository
	customerRepo partner.CustomerRepository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	txScope TransactionScope,
	invoiceRepo billing.InvoiceRepository,
	customerRepo partner.CustomerRepository,
) *InvoiceService {
	return &InvoiceService{
		txScope:      txScope,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
	}
}

// Create creates a new draft invoice for a customer
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}

	invoiceNumber, err := s.invoiceRepo.GenerateInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice, err := billing.NewInvoice(
		invoiceNumber,
		customer.ID,
		customer.Name,
		req.InvoiceDate,
		req.DueDate,
		valueobject.NewMoneyEGP(req.TotalAmount),
	)
	if err != nil {
		return nil, err
	}
	if req.Notes != "" {
		invoice.SetNotes(req.Notes)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	return ToInvoiceResponse(invoice), nil
}

// Confirm moves a draft invoice to CONFIRMED and raises the customer's
// balance by its total, in one transaction
func (s *InvoiceService) Confirm(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "confirm")
	defer span.End()

	var response *InvoiceResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		customer, err := repos.CustomerRepo().FindByID(ctx, invoice.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return shared.NewDomainError("NOT_FOUND", "Customer not found")
		}

		if err := invoice.Confirm(); err != nil {
			return err
		}

		balanceBefore := customer.Balance
		if err := customer.IncreaseBalance(invoice.TotalAmount, partner.BalanceSourceTypeInvoice.String(), invoice.ID); err != nil {
			return err
		}

		ledgerEntry, err := partner.CreateInvoiceTransaction(customer.ID, invoice.TotalAmount, balanceBefore, invoice.ID)
		if err != nil {
			return err
		}
		ledgerEntry.WithReference(invoice.InvoiceNumber)

		if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
			return err
		}
		if err := repos.BalanceTxRepo().Create(ctx, ledgerEntry); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return response, nil
}

// Cancel cancels an invoice. A confirmed invoice's balance effect is
// reversed; invoices with payments cannot be cancelled.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel")
	defer span.End()

	var response *InvoiceResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		wasConfirmed := invoice.Status == billing.InvoiceStatusConfirmed

		if err := invoice.Cancel(reason); err != nil {
			return err
		}

		if wasConfirmed {
			customer, err := repos.CustomerRepo().FindByID(ctx, invoice.CustomerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return shared.NewDomainError("NOT_FOUND", "Customer not found")
			}

			balanceBefore := customer.Balance
			if err := customer.DecreaseBalance(invoice.TotalAmount, partner.BalanceSourceTypeInvoice.String(), invoice.ID); err != nil {
				return err
			}

			ledgerEntry, err := partner.CreateReversalTransaction(customer.ID, invoice.TotalAmount, balanceBefore, invoice.ID)
			if err != nil {
				return err
			}
			ledgerEntry.WithReference(invoice.InvoiceNumber)

			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}
			if err := repos.BalanceTxRepo().Create(ctx, ledgerEntry); err != nil {
				return err
			}
		}

		if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
			return err
		}

		response = ToInvoiceResponse(invoice)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return response, nil
}

// Get retrieves an invoice by ID
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return ToInvoiceResponse(invoice), nil
}

// GetByNumber retrieves an invoice by its invoice number
func (s *InvoiceService) GetByNumber(ctx context.Context, invoiceNumber string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return ToInvoiceResponse(invoice), nil
}

// List retrieves invoices matching the given criteria
func (s *InvoiceService) List(ctx context.Context, req ListInvoicesRequest) (*shared.Paginated[*InvoiceResponse], error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := billing.InvoiceFilter{
		Filter:      shared.Filter{Page: page, PageSize: pageSize},
		CustomerID:  req.CustomerID,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		OverdueOnly: req.OverdueOnly,
	}
	if req.Status != "" {
		status := billing.InvoiceStatus(req.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS",
				fmt.Sprintf("Invoice status %q is not valid", req.Status))
		}
		filter.Status = &status
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = ToInvoiceResponse(inv)
	}
	result := shared.NewPaginated(responses, total, page, pageSize)
	return &result, nil
}

// ListOutstanding returns a customer's payable invoices in FIFO order
func (s *InvoiceService) ListOutstanding(ctx context.Context, customerID uuid.UUID) ([]*InvoiceResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}

	invoices, err := s.invoiceRepo.FindOutstandingByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	responses := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = ToInvoiceResponse(inv)
	}
	return responses, nil
}
