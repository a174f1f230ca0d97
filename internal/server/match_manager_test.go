package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyak/kombat_backend/internal/battle"
	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/scoring"
)

func testFighterConfigs() (fighter.Config, fighter.Config) {
	return fighter.Config{Name: "Alice"}, fighter.Config{Name: "Bob"}
}

func TestCreateMatchRegistersSession(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.Manager()

	c1, c2 := testFighterConfigs()
	matchID, session, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)
	require.NotEmpty(t, matchID)

	assert.Equal(t, battle.StatusWaiting, session.Status())
	assert.Equal(t, "Alice", session.Fighter1.Name())
	assert.Equal(t, "Bob", session.Fighter2.Name())

	got, ok := manager.GetSession(matchID)
	require.True(t, ok)
	assert.Same(t, session, got)

	record, err := srv.db.GetMatch(matchID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", record.Fighter1Name)
	assert.Equal(t, "Bob", record.Fighter2Name)
	assert.Equal(t, "waiting", record.Status)
}

func TestGetSessionUnknown(t *testing.T) {
	srv := newTestServer(t)

	_, ok := srv.Manager().GetSession("nope")
	assert.False(t, ok)
}

func TestAbandonBeforeLoopStarts(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.Manager()

	c1, c2 := testFighterConfigs()
	matchID, session, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)

	require.NoError(t, manager.AbandonMatch(matchID))
	assert.Equal(t, battle.StatusAbandoned, session.Status())

	record, err := srv.db.GetMatch(matchID)
	require.NoError(t, err)
	assert.Equal(t, "abandoned", record.Status)

	assert.Error(t, manager.AbandonMatch("unknown"))
}

func TestVerdictEventPersistsTurn(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.Manager()

	c1, c2 := testFighterConfigs()
	matchID, session, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)

	sink := manager.eventSink(session)
	sink(battle.Event{
		Type:      battle.EventVerdict,
		MatchID:   matchID,
		Fighter:   "Alice",
		Opponent:  "Bob",
		Text:      "Your feed is a cry for help.",
		TurnIndex: 0,
		Round:     1,
		Damage:    52,
		SpeedTier: battle.SpeedTierQuick,
		Score: &scoring.RoastScore{
			Specificity: 80,
			Creativity:  60,
			Accuracy:    90,
			Reasoning:   "sharp and specific",
		},
	})

	turns, err := srv.db.GetMatchTurns(matchID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "Alice", turns[0].Speaker)
	assert.Equal(t, "Your feed is a cry for help.", turns[0].Text)
	assert.Equal(t, 52, turns[0].Damage)
	assert.Equal(t, "quick", turns[0].SpeedTier)
	assert.Equal(t, 80, turns[0].Specificity)
}

func TestCleanupSettledMatches(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.Manager()

	c1, c2 := testFighterConfigs()
	abandonedID, _, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)
	require.NoError(t, manager.AbandonMatch(abandonedID))

	waitingID, _, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)

	manager.CleanupSettledMatches()

	_, ok := manager.GetSession(abandonedID)
	assert.False(t, ok, "abandoned match should be cleaned up")
	_, ok = manager.GetSession(waitingID)
	assert.True(t, ok, "waiting match should survive cleanup")
}

func TestRemoveMatch(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.Manager()

	c1, c2 := testFighterConfigs()
	matchID, _, err := manager.CreateMatch(c1, c2)
	require.NoError(t, err)

	manager.RemoveMatch(matchID)
	_, ok := manager.GetSession(matchID)
	assert.False(t, ok)
}
