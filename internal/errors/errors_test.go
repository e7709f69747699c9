package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", ValidationError("bad input"), http.StatusBadRequest},
		{"conflict", ConflictError("duplicate"), http.StatusConflict},
		{"unavailable", UnavailableError("store down", nil), http.StatusServiceUnavailable},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
		{"unknown type", &Error{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := UnavailableError("store down", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("structured error passes through", func(t *testing.T) {
		orig := ValidationError("bad input")
		assert.Same(t, orig, AsStructuredError(orig))
	})

	t.Run("wrapped structured error is found", func(t *testing.T) {
		orig := ConflictError("duplicate")
		wrapped := fmt.Errorf("handling request: %w", orig)
		assert.Same(t, orig, AsStructuredError(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		err := AsStructuredError(errors.New("boom"))
		assert.Equal(t, TypeInternal, err.Type)
		assert.ErrorContains(t, err, "boom")
	})
}

func TestToResponse(t *testing.T) {
	resp := ValidationError("latitude out of range").ToResponse()
	assert.Equal(t, ErrorResponse{Error: "latitude out of range", Type: TypeValidation}, resp)
}
