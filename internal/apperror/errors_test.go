package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "payment failed", New(http.StatusInternalServerError, CodePaymentFailed, "payment failed", nil).Error())

	wrapped := Internal("gateway unavailable", errors.New("dial tcp: timeout"))
	assert.Equal(t, "gateway unavailable: dial tcp: timeout", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "dial tcp: timeout")
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"BadRequest", BadRequest(CodeInvalidCredentials, "invalid"), http.StatusBadRequest, CodeInvalidCredentials},
		{"Conflict", Conflict(CodeAlreadyPaid, "paid"), http.StatusBadRequest, CodeAlreadyPaid},
		{"Unauthorized", Unauthorized(CodeTokenExpired, "expired"), http.StatusUnauthorized, CodeTokenExpired},
		{"Forbidden", Forbidden(CodeEmailNotVerified, "verify"), http.StatusForbidden, CodeEmailNotVerified},
		{"NotFound", NotFound("user not found"), http.StatusNotFound, CodeNotFound},
		{"Internal", Internal("boom", nil), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestValidation(t *testing.T) {
	err := Validation(map[string]string{"email": "email is required"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "email is required", err.Fields["email"])
}

func TestFrom(t *testing.T) {
	original := NotFound("order not found")
	wrapped := fmt.Errorf("handler: %w", original)

	assert.Same(t, original, From(wrapped))

	unknown := From(errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, unknown.Status)
	assert.Equal(t, "internal server error", unknown.Message)
}
