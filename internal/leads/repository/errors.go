package repository

import (
	"context"
	"errors"
	"strings"

	"leadflow_backend/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrTerminalState is returned when a write targets a won or lost lead.
	ErrTerminalState = errors.New("lead is in a terminal state")
	// ErrConflict is returned when an insert lost a race and the winning row
	// could not be read back. Callers may retry.
	ErrConflict = errors.New("concurrent write conflict")
)

// AppError converts store errors into typed application errors.
func AppError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "lead not found", err).WithOp(op)
	case errors.Is(err, ErrTerminalState):
		return apperr.Wrap(apperr.KindInvalidTransition, "lead is already closed", err).WithOp(op)
	case isDataException(err):
		return apperr.Wrap(apperr.KindValidation, "value rejected by lead store", err).WithOp(op)
	case errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.KindStoreUnavailable, "request cancelled", err).WithOp(op)
	default:
		return apperr.StoreUnavailable("lead store unavailable", err).WithOp(op)
	}
}

// isDataException matches Postgres class 22 errors (bad encoding, NUL bytes,
// out-of-range values). Retrying the same input never succeeds.
func isDataException(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "22")
}
