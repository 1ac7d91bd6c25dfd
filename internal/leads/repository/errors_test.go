package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"leadflow_backend/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	assert.Nil(t, AppError("op", nil))
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(AppError("op", fmt.Errorf("get: %w", ErrNotFound))))
	assert.Equal(t, apperr.KindInvalidTransition, apperr.GetKind(AppError("op", ErrTerminalState)))
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.GetKind(AppError("op", errors.New("connection refused"))))
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.GetKind(AppError("op", context.DeadlineExceeded)))

	typed := apperr.Validation("bad")
	assert.Same(t, typed, AppError("op", typed))
}

func TestAppErrorDataExceptionIsNotTransient(t *testing.T) {
	err := AppError("op", fmt.Errorf("insert message: %w", &pgconn.PgError{Code: "22021", Message: "invalid byte sequence for encoding \"UTF8\": 0x00"}))
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))
	assert.False(t, apperr.IsTransient(err))

	err = AppError("op", &pgconn.PgError{Code: "23503"})
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.GetKind(err))
}
