package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause is reachable through errors.Is", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap(cause, CodeUnavailable, "audit store unavailable")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeUnavailable, CodeOf(err))
		assert.Equal(t, "audit store unavailable", MessageOf(err))
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeValidation, "data_type is required")
	outer := Wrap(inner, CodeBadRequest, "invalid request")
	wrapped := fmt.Errorf("decode: %w", outer)

	assert.True(t, HasCode(wrapped, CodeBadRequest))
	assert.True(t, HasCode(wrapped, CodeValidation))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestCodeOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
