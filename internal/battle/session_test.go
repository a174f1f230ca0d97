package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStartsWaitingAtFullHealth(t *testing.T) {
	session := newTestSession(t)

	assert.Equal(t, StatusWaiting, session.Status())
	assert.Equal(t, 100, session.Health(SlotFighter1))
	assert.Equal(t, 100, session.Health(SlotFighter2))
	assert.Equal(t, 0, session.Round())
	assert.Empty(t, session.History())
	assert.Empty(t, session.ExhaustedTopics())
}

func TestSessionApplyDamageClampsAtZero(t *testing.T) {
	session := newTestSession(t)

	assert.Equal(t, 48, session.ApplyDamage(SlotFighter2, 52))
	assert.Equal(t, 0, session.ApplyDamage(SlotFighter2, 60), "health never goes negative")
	assert.Equal(t, 100, session.Health(SlotFighter1), "other fighter untouched")
}

func TestSessionFinalizeTurnIsSetOnce(t *testing.T) {
	session := newTestSession(t)
	idx := session.AppendTurn("Alice", SlotFighter1, "your startup has three users")

	require.NoError(t, session.FinalizeTurn(idx, 40, SpeedTierQuick, false))

	err := session.FinalizeTurn(idx, 10, SpeedTierSteady, true)
	require.Error(t, err, "a turn's damage must not be rewritten")

	history := session.History()
	require.Len(t, history, 1)
	assert.Equal(t, 40, *history[0].Damage)
	assert.Equal(t, SpeedTierQuick, history[0].SpeedTier)
	assert.False(t, history[0].Critical)
}

func TestSessionFinalizeTurnRejectsBadIndex(t *testing.T) {
	session := newTestSession(t)
	assert.Error(t, session.FinalizeTurn(0, 10, SpeedTierSteady, false))
	assert.Error(t, session.FinalizeTurn(-1, 10, SpeedTierSteady, false))
}

func TestSessionTracksExhaustedTopicsAcrossBothFighters(t *testing.T) {
	session := newTestSession(t)

	session.AppendTurn("Alice", SlotFighter1, "Your girlfriend left because your job is a joke")
	session.AppendTurn("Bob", SlotFighter2, "At least I don't skip the gym")

	exhausted := session.ExhaustedTopics()
	assert.Contains(t, exhausted, "dating")
	assert.Contains(t, exhausted, "career")
	assert.Contains(t, exhausted, "hobbies")
}

func TestSessionHistoryEntriesMirrorHistory(t *testing.T) {
	session := newTestSession(t)
	session.AppendTurn("Alice", SlotFighter1, "first")
	session.AppendTurn("Bob", SlotFighter2, "second")

	entries := session.HistoryEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].Speaker)
	assert.Equal(t, "first", entries[0].Text)
	assert.Equal(t, "Bob", entries[1].Speaker)
	assert.Equal(t, "second", entries[1].Text)
}

func TestSessionHistoryReturnsCopy(t *testing.T) {
	session := newTestSession(t)
	session.AppendTurn("Alice", SlotFighter1, "original")

	history := session.History()
	history[0].Text = "mutated"

	assert.Equal(t, "original", session.History()[0].Text)
}

func TestSessionSnapshot(t *testing.T) {
	session := newTestSession(t)
	session.begin(SlotFighter2)
	idx := session.AppendTurn("Bob", SlotFighter2, "hello")
	require.NoError(t, session.FinalizeTurn(idx, 12, SpeedTierSteady, false))
	session.ApplyDamage(SlotFighter1, 12)
	session.SetCurrentTurn(SlotFighter1)

	snap := session.Snapshot()
	assert.Equal(t, "match-test", snap.MatchID)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, "Alice", snap.Fighter1)
	assert.Equal(t, "Bob", snap.Fighter2)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, "Alice", snap.CurrentTurn)
	assert.Equal(t, "Bob", snap.StartingFighter)
	assert.Equal(t, 88, snap.Health["Alice"])
	assert.Equal(t, 100, snap.Health["Bob"])
	require.Len(t, snap.History, 1)
	assert.Equal(t, 12, *snap.History[0].Damage)
}

func TestSessionSetTurnAudio(t *testing.T) {
	session := newTestSession(t)

	index := session.AppendTurn("Alice", SlotFighter1, "some roast")
	require.NoError(t, session.SetTurnAudio(index, "/api/audio/abc123"))
	assert.Equal(t, "/api/audio/abc123", session.History()[0].AudioURL)

	assert.Error(t, session.SetTurnAudio(5, "/api/audio/late"))
}

func TestSlotOther(t *testing.T) {
	assert.Equal(t, SlotFighter2, SlotFighter1.Other())
	assert.Equal(t, SlotFighter1, SlotFighter2.Other())
}
