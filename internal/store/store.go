// Package store provides the persistent report ledger.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/honeypot/internal/domain"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// Repository defines the interface for persisting dispatched reports.
type Repository interface {
	// CreateReport inserts a new ledger record.
	CreateReport(ctx context.Context, rec *domain.ReportRecord) error

	// UpdateReportStatus records the outcome of delivery attempts.
	UpdateReportStatus(ctx context.Context, reportID, status string, attempts int, lastError string) error

	// GetReport retrieves a report by ID. It returns ErrNotFound when absent.
	GetReport(ctx context.Context, reportID string) (*domain.ReportRecord, error)

	// ListReports returns the most recent reports, newest first.
	ListReports(ctx context.Context, limit int) ([]*domain.ReportRecord, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
