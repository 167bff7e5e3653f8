package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS reports (
		report_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateReport inserts a new ledger record.
func (s *SQLiteStore) CreateReport(ctx context.Context, rec *domain.ReportRecord) error {
	query := `
	INSERT INTO reports (report_id, session_id, payload_json, status, attempts, last_error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var lastError interface{}
	if rec.LastError != "" {
		lastError = rec.LastError
	}

	err := shared.RetrySQLite(ctx, "create_report", func() error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ReportID, rec.SessionID, string(rec.Payload), rec.Status,
			rec.Attempts, lastError,
			rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rec.ReportID, err)
	}
	return nil
}

// UpdateReportStatus records the outcome of delivery attempts.
func (s *SQLiteStore) UpdateReportStatus(ctx context.Context, reportID, status string, attempts int, lastError string) error {
	query := `UPDATE reports SET status = ?, attempts = ?, last_error = ?, updated_at = ? WHERE report_id = ?`

	var errValue interface{}
	if lastError != "" {
		errValue = lastError
	}

	var rows int64
	err := shared.RetrySQLite(ctx, "update_report", func() error {
		result, err := s.db.ExecContext(ctx, query, status, attempts, errValue, time.Now().UnixMilli(), reportID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update report %s: %w", reportID, err)
	}
	if rows == 0 {
		slog.Warn("UpdateReportStatus affected 0 rows", "report_id", reportID)
		return ErrNotFound
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (*domain.ReportRecord, error) {
	query := `
		SELECT report_id, session_id, payload_json, status, attempts,
		       last_error, created_at, updated_at
		FROM reports WHERE report_id = ?`

	rec, err := scanReport(s.db.QueryRowContext(ctx, query, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan report row: %w", err)
	}
	return rec, nil
}

// ListReports returns up to limit reports, newest first. A non-positive
// limit uses the default page size.
func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]*domain.ReportRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	query := `
		SELECT report_id, session_id, payload_json, status, attempts,
		       last_error, created_at, updated_at
		FROM reports ORDER BY created_at DESC, report_id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close report rows", "error", closeErr)
		}
	}()

	reports := make([]*domain.ReportRecord, 0, limit)
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.ReportRecord, error) {
	var rec domain.ReportRecord
	var payload string
	var lastError sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&rec.ReportID, &rec.SessionID, &payload, &rec.Status, &rec.Attempts,
		&lastError, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	rec.LastError = lastError.String
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return &rec, nil
}
