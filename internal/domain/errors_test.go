package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	err := NotFoundf("user %d", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "user 7", Message(err))

	err = Validationf("incorrect booking time")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "incorrect booking time", Message(err))

	err = Conflictf("already booked")
	assert.True(t, errors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("confirm: %w", err)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "confirm: conflict: already booked", Message(wrapped))

	assert.Equal(t, "boom", Message(errors.New("boom")))
}
