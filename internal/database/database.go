package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/scoring"
)

// Database is the sqlite-backed match archive
type Database struct {
	db *sql.DB
}

// MatchRecord is the persisted state of a match
type MatchRecord struct {
	ID             string `json:"id"`
	Fighter1Name   string `json:"fighter1_name"`
	Fighter2Name   string `json:"fighter2_name"`
	Status         string `json:"status"`
	Round          int    `json:"round"`
	Fighter1Health int    `json:"fighter1_health"`
	Fighter2Health int    `json:"fighter2_health"`
	Winner         string `json:"winner,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// TurnRow is one archived roast with its resolved verdict
type TurnRow struct {
	ID          int64  `json:"id"`
	MatchID     string `json:"match_id"`
	TurnIndex   int    `json:"turn_index"`
	Round       int    `json:"round"`
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	Damage      int    `json:"damage"`
	SpeedTier   string `json:"speed_tier"`
	Critical    bool   `json:"critical"`
	Repetition  bool   `json:"repetition"`
	Specificity int    `json:"specificity"`
	Creativity  int    `json:"creativity"`
	Accuracy    int    `json:"accuracy"`
	Reasoning   string `json:"reasoning"`
	CreatedAt   string `json:"created_at"`
}

// New opens (creating if needed) the database under dataDir and brings the
// schema up to date.
func New(dataDir string) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "kombat.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := NewMigrationManager(db).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// DB exposes the underlying handle for migration tooling
func (d *Database) DB() *sql.DB {
	return d.db
}

// CreateMatch inserts a new match row in the waiting state
func (d *Database) CreateMatch(id, fighter1Name, fighter2Name string) error {
	query := `INSERT INTO matches (id, fighter1_name, fighter2_name, status) VALUES (?, ?, ?, 'waiting')`
	if _, err := d.db.Exec(query, id, fighter1Name, fighter2Name); err != nil {
		return fmt.Errorf("failed to create match: %v", err)
	}
	logging.LogDatabaseEvent("insert", "matches", map[string]interface{}{"match_id": id})
	return nil
}

// UpdateMatchState writes the current engine state for a match
func (d *Database) UpdateMatchState(id, status string, round, fighter1Health, fighter2Health int, winner string) error {
	query := `UPDATE matches
		SET status = ?, round = ?, fighter1_health = ?, fighter2_health = ?, winner = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := d.db.Exec(query, status, round, fighter1Health, fighter2Health, winner, id)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %v", id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("match %s not found", id)
	}
	return nil
}

// GetMatch retrieves a match row by ID
func (d *Database) GetMatch(id string) (*MatchRecord, error) {
	query := `SELECT id, fighter1_name, fighter2_name, status, round,
			fighter1_health, fighter2_health, winner, created_at, updated_at
		FROM matches WHERE id = ?`

	var record MatchRecord
	err := d.db.QueryRow(query, id).Scan(
		&record.ID, &record.Fighter1Name, &record.Fighter2Name, &record.Status, &record.Round,
		&record.Fighter1Health, &record.Fighter2Health, &record.Winner, &record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %v", id, err)
	}
	return &record, nil
}

// SaveTurn archives a resolved turn with its verdict
func (d *Database) SaveTurn(matchID string, turnIndex, round int, speaker, text string, score *scoring.RoastScore, damage int, speedTier string, critical bool) (int64, error) {
	query := `INSERT INTO turns
		(match_id, turn_index, round, speaker, text, damage, speed_tier, critical, repetition, specificity, creativity, accuracy, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	repetition := false
	specificity, creativity, accuracy := 0, 0, 0
	reasoning := ""
	if score != nil {
		repetition = score.IsRepetition
		specificity = score.Specificity
		creativity = score.Creativity
		accuracy = score.Accuracy
		reasoning = score.Reasoning
	}

	result, err := d.db.Exec(query, matchID, turnIndex, round, speaker, text,
		damage, speedTier, critical, repetition, specificity, creativity, accuracy, reasoning)
	if err != nil {
		return 0, fmt.Errorf("failed to save turn: %v", err)
	}
	return result.LastInsertId()
}

// GetMatchTurns returns a match's turns in delivery order
func (d *Database) GetMatchTurns(matchID string) ([]*TurnRow, error) {
	query := `SELECT id, match_id, turn_index, round, speaker, text, damage, speed_tier,
			critical, repetition, specificity, creativity, accuracy, reasoning, created_at
		FROM turns WHERE match_id = ? ORDER BY turn_index`

	rows, err := d.db.Query(query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %v", err)
	}
	defer rows.Close()

	var turns []*TurnRow
	for rows.Next() {
		var turn TurnRow
		err := rows.Scan(&turn.ID, &turn.MatchID, &turn.TurnIndex, &turn.Round, &turn.Speaker,
			&turn.Text, &turn.Damage, &turn.SpeedTier, &turn.Critical, &turn.Repetition,
			&turn.Specificity, &turn.Creativity, &turn.Accuracy, &turn.Reasoning, &turn.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %v", err)
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}

// MarkStaleActiveMatches flips matches still marked waiting or active to
// abandoned. Run at startup: a live engine cannot survive a restart, so any
// such row is an orphan from a previous process.
func (d *Database) MarkStaleActiveMatches() (int64, error) {
	query := `UPDATE matches SET status = 'abandoned', updated_at = CURRENT_TIMESTAMP
		WHERE status IN ('waiting', 'active')`
	result, err := d.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale matches: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		logging.LogDatabaseEvent("stale_matches_abandoned", "matches", map[string]interface{}{
			"count": affected,
		})
	}
	return affected, nil
}

// ListRecentMatches returns the most recent matches, newest first
func (d *Database) ListRecentMatches(limit int) ([]*MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, fighter1_name, fighter2_name, status, round,
			fighter1_health, fighter2_health, winner, created_at, updated_at
		FROM matches ORDER BY created_at DESC LIMIT ?`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %v", err)
	}
	defer rows.Close()

	var matches []*MatchRecord
	for rows.Next() {
		var record MatchRecord
		err := rows.Scan(&record.ID, &record.Fighter1Name, &record.Fighter2Name, &record.Status,
			&record.Round, &record.Fighter1Health, &record.Fighter2Health, &record.Winner,
			&record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %v", err)
		}
		matches = append(matches, &record)
	}
	return matches, rows.Err()
}
