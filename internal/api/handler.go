// Package api provides HTTP handlers for the honeypot API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/honeypot"
)

const (
	serviceName    = "Agentic Honey-Pot API"
	serviceVersion = "1.0.0"
	maxBodyBytes   = 1 << 20
)

// ReportReader reads the report ledger.
type ReportReader interface {
	GetReport(ctx context.Context, reportID string) (*domain.ReportRecord, error)
	ListReports(ctx context.Context, limit int) ([]*domain.ReportRecord, error)
	Ping(ctx context.Context) error
}

// AgentStatus describes the reply generator.
type AgentStatus interface {
	Available() bool
	Provider() string
}

// Handler serves the honeypot endpoints.
type Handler struct {
	svc      *honeypot.Service
	reports  ReportReader
	agent    AgentStatus
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *honeypot.Service, reports ReportReader, agent AgentStatus, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      svc,
		reports:  reports,
		agent:    agent,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"status": "error", "detail": detail})
}
