package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Wrapped", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", NotFound("food.Get", "food %d not found", 7))
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.True(t, Is(err, KindNotFound))
		assert.False(t, Is(err, KindValidation))
	})

	t.Run("PlainError", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.False(t, Is(nil, KindInternal))
	})
}

func TestErrorMessage(t *testing.T) {
	err := Validation("diary.LogEntry", "servings must be positive, got %v", -1.0)
	assert.Equal(t, "diary.LogEntry: servings must be positive, got -1", err.Error())

	cause := errors.New("timeout")
	wrapped := Unavailable("usda.search", cause)
	assert.ErrorIs(t, wrapped, cause)
}
