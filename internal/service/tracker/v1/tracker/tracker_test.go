package tracker

import (
	"testing"
	"time"

	"github.com/businas/qwallet-bot/internal/config"
	trackerModel "github.com/businas/qwallet-bot/internal/service/tracker/v1"
	trackerErrors "github.com/businas/qwallet-bot/internal/service/tracker/v1/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	log := zerolog.Nop()
	return InitTracker(&config.LedgerConfig{
		ActionCooldown: 10 * time.Second,
		SessionTTL:     30 * time.Minute,
	}, &log)
}

func TestAcceptEnforcesCooldown(t *testing.T) {
	tracker := newTestTracker(t)
	base := time.Unix(1700000000, 0)
	tracker.now = func() time.Time { return base }

	assert.True(t, tracker.Accept(1))
	assert.False(t, tracker.Accept(1))

	tracker.now = func() time.Time { return base.Add(9 * time.Second) }
	assert.False(t, tracker.Accept(1))

	tracker.now = func() time.Time { return base.Add(10 * time.Second) }
	assert.True(t, tracker.Accept(1))
}

func TestRejectedAttemptDoesNotExtendWindow(t *testing.T) {
	tracker := newTestTracker(t)
	base := time.Unix(1700000000, 0)
	tracker.now = func() time.Time { return base }
	require.True(t, tracker.Accept(1))

	// a rejected attempt must not push the window further out
	tracker.now = func() time.Time { return base.Add(9 * time.Second) }
	require.False(t, tracker.Accept(1))
	tracker.now = func() time.Time { return base.Add(10 * time.Second) }
	assert.True(t, tracker.Accept(1))
}

func TestAcceptIsPerUser(t *testing.T) {
	tracker := newTestTracker(t)
	base := time.Unix(1700000000, 0)
	tracker.now = func() time.Time { return base }

	assert.True(t, tracker.Accept(1))
	assert.True(t, tracker.Accept(2))
	assert.False(t, tracker.Accept(1))
	assert.False(t, tracker.Accept(2))
}

func TestTipFlow(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginTipFlow(1)

	intent, err := tracker.Advance(1, "@bob")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentAskTipAmount, intent.Kind)

	intent, err = tracker.Advance(1, " 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentTip, intent.Kind)
	assert.Equal(t, "bob", intent.TipTarget)
	assert.Equal(t, 2.5, intent.Amount)

	// the flow is spent
	intent, err = tracker.Advance(1, "2.5")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentNone, intent.Kind)
}

func TestTipFlowMalformedAmountClearsFlow(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginTipFlow(1)

	_, err := tracker.Advance(1, "bob")
	require.NoError(t, err)

	_, err = tracker.Advance(1, "a lot")
	var malformedAmountError *trackerErrors.MalformedAmountError
	require.ErrorAs(t, err, &malformedAmountError)

	intent, err := tracker.Advance(1, "2.5")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentNone, intent.Kind)
}

func TestWithdrawFlow(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginWithdrawFlow(1)

	intent, err := tracker.Advance(1, "15")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentWithdraw, intent.Kind)
	assert.Equal(t, 15.0, intent.Amount)

	intent, err = tracker.Advance(1, "15")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentNone, intent.Kind)
}

func TestBeginFlowReplacesActiveFlow(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginTipFlow(1)
	_, err := tracker.Advance(1, "bob")
	require.NoError(t, err)

	tracker.BeginWithdrawFlow(1)
	intent, err := tracker.Advance(1, "15")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentWithdraw, intent.Kind)
	assert.Empty(t, intent.TipTarget)
}

func TestAbandonClearsFlow(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginTipFlow(1)
	tracker.Abandon(1)

	intent, err := tracker.Advance(1, "bob")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentNone, intent.Kind)
}

func TestFlowsAreIsolatedPerUser(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.BeginTipFlow(1)
	tracker.BeginWithdrawFlow(2)

	intent, err := tracker.Advance(2, "15")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentWithdraw, intent.Kind)

	intent, err = tracker.Advance(1, "bob")
	require.NoError(t, err)
	assert.Equal(t, trackerModel.IntentAskTipAmount, intent.Kind)
}

func TestEvictStaleDropsExpiredSessions(t *testing.T) {
	tracker := newTestTracker(t)
	base := time.Unix(1700000000, 0)
	tracker.now = func() time.Time { return base }
	tracker.BeginTipFlow(1)
	tracker.BeginTipFlow(2)

	tracker.now = func() time.Time { return base.Add(29 * time.Minute) }
	tracker.Abandon(2) // refreshes touchedAt

	tracker.now = func() time.Time { return base.Add(31 * time.Minute) }
	tracker.evictStale()

	tracker.mu.Lock()
	_, expired := tracker.sessions[1]
	_, kept := tracker.sessions[2]
	tracker.mu.Unlock()
	assert.False(t, expired)
	assert.True(t, kept)
}
