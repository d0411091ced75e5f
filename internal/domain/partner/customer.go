package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// CustomerStatus is the lifecycle state of a customer account.
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

var (
	customerCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	phonePattern        = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	emailPattern        = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Customer is the aggregate root for customer-related operations.
// Balance is the receivable running balance: positive means the customer
// owes money. It is mutated only by invoice confirmation, payment
// allocation, and invoice cancellation - never edited directly.
type Customer struct {
	shared.BaseAggregateRoot
	Code        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Phone       string          `gorm:"type:varchar(50);index"`
	Email       string          `gorm:"type:varchar(200);index"`
	Address     string          `gorm:"type:text"`
	TaxID       string          `gorm:"type:varchar(50)"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status      CustomerStatus  `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       string          `gorm:"type:text"`
}

func (Customer) TableName() string { return "customers" }

// NewCustomer builds an active customer with a zero balance. The code is
// normalized to upper case before it is stored or compared.
func NewCustomer(code, name string) (*Customer, error) {
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            CustomerStatusActive,
		CreditLimit:       decimal.Zero,
		Balance:           decimal.Zero,
	}
	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))
	return customer, nil
}

// touch stamps the mutation and bumps the optimistic-lock version. Every
// mutator must call it so SaveWithLock sees the change.
func (c *Customer) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Update renames the customer.
func (c *Customer) Update(name string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	c.Name = name
	c.touch()
	return nil
}

// SetContact replaces phone, email and address together. Empty values
// clear the field.
func (c *Customer) SetContact(phone, email, address string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}

	c.Phone = phone
	c.Email = email
	c.Address = address
	c.touch()
	return nil
}

func (c *Customer) SetTaxID(taxID string) error {
	if len(taxID) > 50 {
		return shared.NewDomainError("INVALID_TAX_ID", "Tax ID cannot exceed 50 characters")
	}
	c.TaxID = taxID
	c.touch()
	return nil
}

func (c *Customer) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	c.CreditLimit = limit
	c.touch()
	return nil
}

// IncreaseBalance raises the receivable balance when an invoice is
// confirmed.
func (c *Customer) IncreaseBalance(amount decimal.Decimal, sourceType string, sourceID uuid.UUID) error {
	return c.moveBalance(amount, sourceType, sourceID, false)
}

// DecreaseBalance lowers the receivable balance when a payment is
// allocated or a confirmed invoice is cancelled. The balance may go
// negative: a customer in credit is a valid ledger state.
func (c *Customer) DecreaseBalance(amount decimal.Decimal, sourceType string, sourceID uuid.UUID) error {
	return c.moveBalance(amount, sourceType, sourceID, true)
}

func (c *Customer) moveBalance(amount decimal.Decimal, sourceType string, sourceID uuid.UUID, negate bool) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	oldBalance := c.Balance
	if negate {
		c.Balance = c.Balance.Sub(amount)
	} else {
		c.Balance = c.Balance.Add(amount)
	}
	c.touch()
	c.AddDomainEvent(NewCustomerBalanceChangedEvent(c, oldBalance, c.Balance, sourceType, sourceID))
	return nil
}

func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.touch()
}

func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}
	c.Status = CustomerStatusActive
	c.touch()
	return nil
}

func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}
	c.Status = CustomerStatusInactive
	c.touch()
	return nil
}

func (c *Customer) IsActive() bool { return c.Status == CustomerStatusActive }

func (c *Customer) HasCreditLimit() bool { return c.CreditLimit.GreaterThan(decimal.Zero) }

// AvailableCredit returns the headroom left before the receivable balance
// reaches the credit limit.
func (c *Customer) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.Balance)
}

func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot exceed 50 characters")
	}
	if !customerCodePattern.MatchString(code) {
		return shared.NewDomainError("INVALID_CODE", "Customer code can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}
