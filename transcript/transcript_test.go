package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulateAndFlush(t *testing.T) {
	var a Accumulator
	a.AppendUser("Hel")
	a.AppendUser("lo")
	a.AppendModel("Hi")

	user, model := a.Flush()
	assert.Equal(t, "Hello", user)
	assert.Equal(t, "Hi", model)

	// Both sides are empty immediately after the flush.
	user, model = a.Flush()
	assert.Empty(t, user)
	assert.Empty(t, model)
}

func TestFlushTrimsWhitespace(t *testing.T) {
	var a Accumulator
	a.AppendUser("  spoken text ")
	a.AppendModel("\n")

	user, model := a.Flush()
	assert.Equal(t, "spoken text", user)
	assert.Empty(t, model)
}

func TestFragmentsNeverStraddleTurns(t *testing.T) {
	var a Accumulator
	a.AppendUser("first turn")
	a.Flush()

	a.AppendUser("second turn")
	user, _ := a.Flush()
	assert.Equal(t, "second turn", user)
}
