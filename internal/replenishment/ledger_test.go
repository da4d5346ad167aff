package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerTake(t *testing.T) {
	l := NewLedger(1, 6, 10)

	granted, next := l.Take(8)
	assert.Equal(t, 6, granted)
	assert.Equal(t, 4, next.Remaining)
	assert.True(t, next.Exhausted())

	// the previous value is untouched
	assert.Equal(t, 10, l.Remaining)

	granted, next = next.Take(6)
	assert.Equal(t, 0, granted)
	assert.Equal(t, 4, next.Remaining)
}

func TestLedgerNeverNegative(t *testing.T) {
	l := NewLedger(1, 1, -5)
	assert.Equal(t, 0, l.Remaining)

	granted, next := l.Take(3)
	assert.Equal(t, 0, granted)
	assert.Equal(t, 0, next.Remaining)
}

func TestLedgerFit(t *testing.T) {
	l := NewLedger(1, 4, 18)

	assert.Equal(t, 0, l.Fit(0))
	assert.Equal(t, 0, l.Fit(3))
	assert.Equal(t, 8, l.Fit(8))
	assert.Equal(t, 16, l.Fit(40))
}
