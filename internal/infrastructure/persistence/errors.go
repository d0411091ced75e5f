package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arledger/backend/internal/domain/shared"
)

// Postgres error code for a unique-constraint violation.
const uniqueViolationCode = "23505"

// translateUniqueViolation turns a unique-index failure into a DomainError
// with the given code so the HTTP layer answers 409 instead of 500. The
// generated document numbers (CUS-, INV-, REC-) come from SELECT max+1 and
// can collide under concurrent creates; the unique index is the arbiter
// and the loser gets a retryable conflict. Other errors pass through
// unchanged.
func translateUniqueViolation(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return shared.NewDomainError(code, message)
	}
	return err
}
