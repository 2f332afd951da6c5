package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("error_type must be one of healthy, warning, critical")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "invalid_input")
}

func TestInternalError(t *testing.T) {
	cause := errors.New("state store unavailable")
	err := InternalError("failed to read status", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "state store unavailable")
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("x"), http.StatusBadRequest},
		{NotFoundError("x"), http.StatusNotFound},
		{ConnectionLostError("x", nil), http.StatusGone},
		{ExternalError("x", nil), http.StatusBadGateway},
		{InternalError("x", nil), http.StatusInternalServerError},
		{ConfigMissingError("ORKES_ROLLBACK_URL"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestConfigMissingError(t *testing.T) {
	err := ConfigMissingError("ORKES_ROLLBACK_URL")

	assert.Equal(t, TypeConfigMissing, err.Type)
	assert.Equal(t, "ORKES_ROLLBACK_URL is not set", err.Message)
	assert.Equal(t, "ORKES_ROLLBACK_URL", err.Context["setting"])
}

func TestWithField_Chains(t *testing.T) {
	err := ValidationError("bad body").WithField("endpoint", "/checkout").WithField("error_type", "boom")

	assert.Equal(t, "/checkout", err.Context["endpoint"])
	assert.Equal(t, "boom", err.Context["error_type"])

	resp := err.ToResponse()
	assert.Equal(t, "bad body", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Len(t, resp.Context, 2)
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	structured := NotFoundError("nope")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := fmt.Errorf("handler: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := errors.New("boom")
	got := AsStructuredError(plain)
	require.NotNil(t, got)
	assert.Equal(t, TypeInternal, got.Type)
	assert.Equal(t, "internal server error", got.Message)
	assert.Equal(t, plain, got.Cause)
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", ConnectionLostError("peer gone", nil))
	assert.True(t, IsType(err, TypeConnectionLost))
	assert.False(t, IsType(err, TypeValidation))
	assert.False(t, IsType(errors.New("plain"), TypeInternal))
}
