package service

import (
	"errors"
	"fmt"
	"testing"

	"economy-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(xerrors.ErrDuplicateClaim))
	assert.True(t, isDuplicate(xerrors.ErrDuplicateIdempotencyKey))
	assert.True(t, isDuplicate(fmt.Errorf("wrapped: %w", xerrors.ErrDuplicateClaim)))
	assert.False(t, isDuplicate(xerrors.ErrInsufficientBalance))
	assert.False(t, isDuplicate(errors.New("other")))
	assert.False(t, isDuplicate(nil))
}
