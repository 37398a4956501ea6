package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewNotFoundError("NOT_FOUND", "Purchase order 42 not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("load order: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "Purchase order 42 not found", err.Error())
}

func TestDomainError_WithSubject(t *testing.T) {
	base := NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	withSubject := base.WithSubject("line-1")

	assert.Equal(t, "line-1", withSubject.Subject)
	assert.Empty(t, base.Subject, "original is not modified")
	assert.True(t, errors.Is(withSubject, base))
}

func TestKindHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		is   func(error) bool
	}{
		{"validation", NewValidationError("X", "x"), KindValidation, IsValidation},
		{"domain error defaults to validation", NewDomainError("X", "x"), KindValidation, IsValidation},
		{"not found", ErrNotFound, KindNotFound, IsNotFound},
		{"invalid transition", ErrInvalidState, KindInvalidTransition, IsInvalidTransition},
		{"concurrency", ErrConcurrencyConflict, KindConcurrency, IsConcurrency},
		{"duplicate request", ErrDuplicateRequest, KindConcurrency, IsConcurrency},
		{"lock not acquired", fmt.Errorf("wrapped: %w", ErrLockNotAcquired), KindConcurrency, IsConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, tt.is(tt.err))
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, ErrorKind(""), KindOf(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsInvalidTransition(err))
	assert.False(t, IsConcurrency(err))
}

func TestFilterOffsetAndPagination(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, 0, f.Offset())

	f.Page = 3
	assert.Equal(t, 40, f.Offset())

	f.PageSize = 0
	assert.Equal(t, 0, f.Offset())

	page := NewPaginated([]int{1, 2, 3}, 41, 1, 20)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 0, NewPaginated([]int{}, 5, 1, 0).TotalPages)
}

func TestNewBaseAggregateRoot(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.GetVersion())
	assert.NotEqual(t, root.GetID().String(), "00000000-0000-0000-0000-000000000000")

	root.AddDomainEvent(&BaseDomainEvent{Type: "X"})
	assert.Len(t, root.GetDomainEvents(), 1)
	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())

	root.IncrementVersion()
	assert.Equal(t, 2, root.GetVersion())
}
