package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altavoz-labs/avatarflow/src/frames"
)

func TestTalkingStateFollowsSpeakingFrames(t *testing.T) {
	state := NewTalkingState()
	p := NewTalkingStateProcessor(state)
	ctx := context.Background()

	require.NoError(t, p.HandleFrame(ctx, frames.NewAvatarStartedSpeakingFrame(), frames.Downstream))
	assert.True(t, state.AvatarTalking())

	require.NoError(t, p.HandleFrame(ctx, frames.NewAvatarStoppedSpeakingFrame(), frames.Downstream))
	assert.False(t, state.AvatarTalking())

	require.NoError(t, p.HandleFrame(ctx, frames.NewUserStartedSpeakingFrame(), frames.Downstream))
	assert.True(t, state.UserTalking())

	require.NoError(t, p.HandleFrame(ctx, frames.NewUserStoppedSpeakingFrame(), frames.Downstream))
	assert.False(t, state.UserTalking())
}

func TestInterruptionClearsAvatarTalking(t *testing.T) {
	state := NewTalkingState()
	p := NewTalkingStateProcessor(state)

	state.SetAvatarTalking(true)
	require.NoError(t, p.HandleFrame(context.Background(), frames.NewInterruptionFrame(), frames.Downstream))
	assert.False(t, state.AvatarTalking())
}

func TestDisconnectClearsBothFlags(t *testing.T) {
	state := NewTalkingState()
	p := NewTalkingStateProcessor(state)

	state.SetAvatarTalking(true)
	state.SetUserTalking(true)
	require.NoError(t, p.HandleFrame(context.Background(), frames.NewStreamDisconnectedFrame("idle"), frames.Downstream))
	assert.False(t, state.AvatarTalking())
	assert.False(t, state.UserTalking())
}
