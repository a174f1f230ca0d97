package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyak/kombat_backend/internal/scoring"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetMatch(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.CreateMatch("m-1", "Alice", "Bob"))

	record, err := db.GetMatch("m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", record.ID)
	assert.Equal(t, "Alice", record.Fighter1Name)
	assert.Equal(t, "Bob", record.Fighter2Name)
	assert.Equal(t, "waiting", record.Status)
	assert.Equal(t, 100, record.Fighter1Health)
	assert.Equal(t, 100, record.Fighter2Health)
	assert.Empty(t, record.Winner)
}

func TestGetMatchNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetMatch("nope")
	assert.Error(t, err)
}

func TestUpdateMatchState(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateMatch("m-1", "Alice", "Bob"))

	require.NoError(t, db.UpdateMatchState("m-1", "finished", 3, 48, 0, "Alice"))

	record, err := db.GetMatch("m-1")
	require.NoError(t, err)
	assert.Equal(t, "finished", record.Status)
	assert.Equal(t, 3, record.Round)
	assert.Equal(t, 48, record.Fighter1Health)
	assert.Equal(t, 0, record.Fighter2Health)
	assert.Equal(t, "Alice", record.Winner)
}

func TestUpdateMatchStateUnknownMatch(t *testing.T) {
	db := newTestDB(t)
	assert.Error(t, db.UpdateMatchState("ghost", "active", 1, 100, 100, ""))
}

func TestSaveAndGetTurns(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateMatch("m-1", "Alice", "Bob"))

	score := &scoring.RoastScore{
		Specificity: 80, Creativity: 60, Accuracy: 90,
		Reasoning: "specific and brutal",
	}
	_, err := db.SaveTurn("m-1", 0, 1, "Alice", "first roast", score, 52, "blazing", false)
	require.NoError(t, err)
	_, err = db.SaveTurn("m-1", 1, 1, "Bob", "comeback", nil, 0, "steady", false)
	require.NoError(t, err)

	turns, err := db.GetMatchTurns("m-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, "Alice", turns[0].Speaker)
	assert.Equal(t, 52, turns[0].Damage)
	assert.Equal(t, "blazing", turns[0].SpeedTier)
	assert.Equal(t, 80, turns[0].Specificity)
	assert.Equal(t, "specific and brutal", turns[0].Reasoning)
	assert.Equal(t, "Bob", turns[1].Speaker)
	assert.Equal(t, 0, turns[1].Damage)
}

func TestSaveTurnRejectsDuplicateIndex(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateMatch("m-1", "Alice", "Bob"))

	_, err := db.SaveTurn("m-1", 0, 1, "Alice", "roast", nil, 10, "steady", false)
	require.NoError(t, err)
	_, err = db.SaveTurn("m-1", 0, 1, "Alice", "again", nil, 10, "steady", false)
	assert.Error(t, err, "turn index is unique per match")
}

func TestMarkStaleActiveMatches(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateMatch("m-waiting", "A", "B"))
	require.NoError(t, db.CreateMatch("m-active", "C", "D"))
	require.NoError(t, db.UpdateMatchState("m-active", "active", 1, 90, 80, ""))
	require.NoError(t, db.CreateMatch("m-done", "E", "F"))
	require.NoError(t, db.UpdateMatchState("m-done", "finished", 2, 10, 0, "E"))

	affected, err := db.MarkStaleActiveMatches()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	for _, id := range []string{"m-waiting", "m-active"} {
		record, err := db.GetMatch(id)
		require.NoError(t, err)
		assert.Equal(t, "abandoned", record.Status, id)
	}

	done, err := db.GetMatch("m-done")
	require.NoError(t, err)
	assert.Equal(t, "finished", done.Status)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	// a second MigrateUp over the same handle must be a no-op
	require.NoError(t, NewMigrationManager(db.DB()).MigrateUp())

	applied, err := NewMigrationManager(db.DB()).GetAppliedMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.Equal(t, "create_matches", applied[0].Name)
	assert.Equal(t, "create_turns", applied[1].Name)
}

func TestListRecentMatches(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateMatch("m-1", "A", "B"))
	require.NoError(t, db.CreateMatch("m-2", "C", "D"))

	matches, err := db.ListRecentMatches(10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
