package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:           http.StatusNotFound,
		KindValidation:         http.StatusBadRequest,
		KindInvalidTransition:  http.StatusConflict,
		KindGatewayUnavailable: http.StatusBadGateway,
		KindStoreUnavailable:   http.StatusServiceUnavailable,
		KindForbidden:          http.StatusForbidden,
		KindUnauthorized:       http.StatusUnauthorized,
		KindInternal:           http.StatusInternalServerError,
		KindUnknown:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, New(kind, "x").HTTPStatus(), kind.String())
	}
}

func TestGetKindThroughWrapping(t *testing.T) {
	base := GatewayUnavailable("gateway timed out", errors.New("deadline exceeded"))
	wrapped := fmt.Errorf("send: %w", base)

	assert.Equal(t, KindGatewayUnavailable, GetKind(wrapped))
	assert.True(t, Is(wrapped, KindGatewayUnavailable))
	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsTransient(Validation("bad address")))
	assert.Equal(t, KindUnknown, GetKind(errors.New("plain")))
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := NotFound("lead not found").WithOp("management.Assign")
	assert.Equal(t, "management.Assign: lead not found", err.Error())
}
