package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("nil has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeUnauthorized, "Invalid credentials"))
		assert.True(t, HasCode(err, CodeUnauthorized))
		assert.Equal(t, "Invalid credentials", MessageOf(err))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load user")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load user: connection refused", err.Error())
	assert.True(t, Is(err, CodeInternal))
}

func TestErrorsIsComparesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")

	require.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
	assert.NotErrorIs(t, err, New(CodeForbidden, "invalid token"))
}
