package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadSession_Transitions(t *testing.T) {
	s := newUploadSession("https://example.invalid/session", 10)
	assert.Equal(t, StateInitiating, s.State())

	// Cannot finish before the transfer begins.
	assert.False(t, s.finish(StateCompleted))

	assert.True(t, s.begin())
	assert.False(t, s.begin())
	assert.Equal(t, StateTransferring, s.State())

	assert.True(t, s.finish(StateCanceled))
	assert.Equal(t, StateCanceled, s.State())

	// Terminal states are sticky.
	assert.False(t, s.finish(StateFailed))
	assert.False(t, s.finish(StateCompleted))
	assert.Equal(t, StateCanceled, s.State())
}

func TestUploadSession_BytesSent(t *testing.T) {
	s := newUploadSession("u", 100)

	assert.Equal(t, int64(40), s.add(40))
	assert.Equal(t, int64(100), s.add(60))
	assert.Equal(t, int64(100), s.BytesSent())

	s.setSent(25)
	assert.Equal(t, int64(25), s.BytesSent())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "transferring", StateTransferring.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateInitiating.Terminal())
}

func TestUploadSession_DistinctIDs(t *testing.T) {
	a := newUploadSession("u", 1)
	b := newUploadSession("u", 1)
	assert.NotEqual(t, a.ID, b.ID)
}
