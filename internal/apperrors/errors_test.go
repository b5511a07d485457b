package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesKindAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewAppError(ErrCalculationTimeout, "plan p1", cause)

	assert.True(t, errors.Is(err, ErrCalculationTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestAppError_ErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"kind only", NewAppError(ErrNotFound, "", nil), "resource not found"},
		{"kind and message", NewAppError(ErrValidation, "amount is required", nil), "validation error: amount is required"},
		{"with cause", NewAppError(ErrStoreUnavailable, "begin", errors.New("dial tcp")), "store unavailable: begin: dial tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("post journal: %w", NewAppError(ErrUnbalancedEntry, "debits 150.00, credits 0.00", nil))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrUnbalancedEntry, appErr.Kind)
	assert.True(t, errors.Is(err, ErrUnbalancedEntry))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewAppError(ErrLockTimeout, "savings subject", nil)))
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", ErrStoreUnavailable)))
	assert.False(t, IsTransient(NewAppError(ErrInsufficientBalance, "", nil)))
	assert.False(t, IsTransient(nil))
}
