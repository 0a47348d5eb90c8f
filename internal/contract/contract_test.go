package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequire(t *testing.T) {
	assert.NotPanics(t, func() { Require(true, "x") })
	assert.PanicsWithValue(t, Violation("A precondition has failed for x"), func() { Require(false, "x") })
	assert.PanicsWithValue(t, Violation("A precondition has failed for x: got 3"), func() {
		Requiref(false, "x", "got %d", 3)
	})
}

func TestFailfAndAssertf(t *testing.T) {
	assert.PanicsWithValue(t, Violation("A failure has occurred: bad form 7"), func() { Failf("bad form %d", 7) })
	assert.NotPanics(t, func() { Assertf(true, "never") })
	assert.Panics(t, func() { Assertf(false, "stack underflow at %s", "L001") })
}
