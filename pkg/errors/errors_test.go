package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewBadRequest("config name is required")
	assert.Equal(t, "config name is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestWithInternalKeepsOriginal(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrInternalServer.WithInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
	// The shared sentinel must not be mutated.
	assert.Nil(t, ErrInternalServer.Internal)
}

func TestFromError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
	})

	t.Run("passes through app errors", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", ErrForbidden)
		got := FromError(wrapped)
		require.NotNil(t, got)
		assert.Equal(t, "FORBIDDEN", got.Code)
	})

	t.Run("wraps unknown errors", func(t *testing.T) {
		got := FromError(errors.New("boom"))
		require.NotNil(t, got)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	})
}
