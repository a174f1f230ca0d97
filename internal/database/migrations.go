package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/koyak/kombat_backend/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one schema change shipped with the binary
type Migration struct {
	ID   int
	Name string
	SQL  string
}

// MigrationRecord is a migration that has already been applied
type MigrationRecord struct {
	ID        int
	Name      string
	AppliedAt time.Time
}

// MigrationManager applies embedded schema migrations in ID order
type MigrationManager struct {
	db    *sql.DB
	files fs.FS
}

// NewMigrationManager creates a manager over the embedded migration set
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db, files: migrationFiles}
}

// Initialize creates the migrations bookkeeping table if it doesn't exist
func (m *MigrationManager) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := m.db.Exec(query)
	return err
}

// LoadMigrations reads the embedded migration files. Filenames follow
// NNN_description.sql; anything else is skipped with a warning.
func (m *MigrationManager) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %v", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 {
			logging.Warn("Skipping migration with invalid name format", map[string]interface{}{
				"file": entry.Name(),
			})
			continue
		}

		id := 0
		if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil {
			logging.Warn("Skipping migration with invalid ID", map[string]interface{}{
				"file": entry.Name(),
			})
			continue
		}

		content, err := fs.ReadFile(m.files, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			ID:   id,
			Name: strings.TrimSuffix(parts[1], ".sql"),
			SQL:  string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

// GetAppliedMigrations returns the migrations already recorded
func (m *MigrationManager) GetAppliedMigrations() ([]MigrationRecord, error) {
	rows, err := m.db.Query("SELECT id, name, applied_at FROM migrations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %v", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %v", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ApplyMigration applies and records one migration in a transaction
func (m *MigrationManager) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	if _, err = tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %d_%s: %v", migration.ID, migration.Name, err)
	}

	if _, err = tx.Exec("INSERT INTO migrations (id, name) VALUES (?, ?)", migration.ID, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d_%s: %v", migration.ID, migration.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// MigrateUp applies every pending migration
func (m *MigrationManager) MigrateUp() error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %v", err)
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}
	appliedMap := make(map[int]bool)
	for _, record := range applied {
		appliedMap[record.ID] = true
	}

	for _, migration := range migrations {
		if appliedMap[migration.ID] {
			continue
		}
		logging.LogDatabaseEvent("migration_apply", "migrations", map[string]interface{}{
			"id":   migration.ID,
			"name": migration.Name,
		})
		if err := m.ApplyMigration(migration); err != nil {
			return err
		}
	}
	return nil
}
