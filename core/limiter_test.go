package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterationLimiter(t *testing.T) {
	l := NewIterationLimiter(2)

	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	assert.ErrorIs(t, err, ErrIterationBudgetExceeded)
	assert.Equal(t, 2, l.Count(), "a rejected reservation must not advance the counter")
}

func TestIterationLimiter_Unlimited(t *testing.T) {
	l := NewIterationLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Increment())
	}
	assert.Equal(t, -1, l.Remaining())
	assert.Equal(t, 100, l.Count())
}
