package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/session"
	"github.com/ashureev/honeypot/internal/store"
)

// GetSession returns the accumulated state of a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Session(chi.URLParam(r, "sessionID"))
	if errors.Is(err, session.ErrUnknownSession) {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	JSON(w, http.StatusOK, view)
}

// ListReports returns recent ledger entries, newest first.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := h.reports.ListReports(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list reports", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if reports == nil {
		reports = []*domain.ReportRecord{}
	}
	JSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

// GetReport returns one ledger entry.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")
	rec, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get report", "report_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	JSON(w, http.StatusOK, rec)
}
