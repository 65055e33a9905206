package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/driftscope/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			event_count INTEGER NOT NULL DEFAULT 0,
			session_count INTEGER NOT NULL DEFAULT 0,
			malformed_lines INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS session_metrics (
			run_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			event_count INTEGER NOT NULL,
			closure TEXT NOT NULL,
			episode_count INTEGER NOT NULL DEFAULT 0,
			had_correction INTEGER NOT NULL DEFAULT 0,
			relapsed INTEGER NOT NULL DEFAULT 0,
			metrics TEXT,
			PRIMARY KEY (run_id, trace_id),
			FOREIGN KEY (run_id) REFERENCES analysis_runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_metrics_run ON session_metrics(run_id, trace_id)`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			report TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES analysis_runs(run_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateAnalysisRun records a new analysis run.
func (s *SQLiteStore) CreateAnalysisRun(ctx context.Context, run *domain.AnalysisRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, source, created_at, event_count, session_count, malformed_lines) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.CreatedAt, run.EventCount, run.SessionCount, run.MalformedLines)
	return err
}

// GetAnalysisRun retrieves one analysis run, or nil if absent.
func (s *SQLiteStore) GetAnalysisRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, source, created_at, event_count, session_count, malformed_lines FROM analysis_runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.Source, &run.CreatedAt, &run.EventCount, &run.SessionCount, &run.MalformedLines)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListAnalysisRuns lists runs, newest first.
func (s *SQLiteStore) ListAnalysisRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	query := `SELECT run_id, source, created_at, event_count, session_count, malformed_lines FROM analysis_runs ORDER BY created_at DESC, run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.AnalysisRun
	for rows.Next() {
		var run domain.AnalysisRun
		if err := rows.Scan(&run.RunID, &run.Source, &run.CreatedAt, &run.EventCount, &run.SessionCount, &run.MalformedLines); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveSessionMetrics persists one session's metrics under a run.
func (s *SQLiteStore) SaveSessionMetrics(ctx context.Context, runID string, m *domain.SessionMetrics) error {
	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal session metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_metrics (run_id, trace_id, event_count, closure, episode_count, had_correction, relapsed, metrics) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, m.TraceID, m.EventCount, string(m.Closure), len(m.Episodes), m.HadCorrection, m.Relapsed, string(blob))
	return err
}

// GetSessionMetrics retrieves all session metrics for a run, ordered by
// trace_id.
func (s *SQLiteStore) GetSessionMetrics(ctx context.Context, runID string) ([]domain.SessionMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metrics FROM session_metrics WHERE run_id = ? ORDER BY trace_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SessionMetrics
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var m domain.SessionMetrics
		if err := json.Unmarshal([]byte(blob), &m); err != nil {
			return nil, fmt.Errorf("failed to decode session metrics: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveReport persists a full report under its run_id.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.Report) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, report, created_at) VALUES (?, ?, ?)`,
		report.RunID, string(blob), time.Now())
	return err
}

// GetReport retrieves a stored report, or nil if absent.
func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*domain.Report, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE run_id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(blob), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
