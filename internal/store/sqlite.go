// Package store provides SQLite-backed persistence for completed
// mirrorjump runs, adapted from the teacher's internal/store: same
// Store/New/Close/migrate shape, trimmed to the one table the ranking
// CLI actually needs (spec §9's supplemented run history — write-only
// from the engine's perspective, never read back by it).
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("store initialized successfully", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// Run Operations
// ============================================================================

// CreateRun inserts a new Run and sets its ID.
func (s *Store) CreateRun(run *Run) error {
	const query = `
		INSERT INTO mirrorjump_runs (
			started_at, target, entry_country, jumps, result_count,
			top_mirror_url, top_speed_bps
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.StartedAt, run.Target, run.EntryCountry, run.Jumps,
		run.ResultCount, run.TopMirrorURL, run.TopSpeedBps,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// GetRun retrieves a Run by ID.
func (s *Store) GetRun(id int64) (*Run, error) {
	const query = `
		SELECT id, started_at, target, entry_country, jumps, result_count,
		       top_mirror_url, top_speed_bps
		FROM mirrorjump_runs WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRow(query, id).Scan(
		&run.ID, &run.StartedAt, &run.Target, &run.EntryCountry,
		&run.Jumps, &run.ResultCount, &run.TopMirrorURL, &run.TopSpeedBps,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves Runs, newest first, optionally limited and filtered
// by target.
func (s *Store) ListRuns(target string, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, target, entry_country, jumps, result_count,
		       top_mirror_url, top_speed_bps
		FROM mirrorjump_runs
	`
	var args []interface{}

	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run := Run{}
		err := rows.Scan(
			&run.ID, &run.StartedAt, &run.Target, &run.EntryCountry,
			&run.Jumps, &run.ResultCount, &run.TopMirrorURL, &run.TopSpeedBps,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}
