package api

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// Root identifies the service.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Health reports ledger connectivity and reply generator availability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := map[string]string{"agent": h.agent.Provider()}
	if err := h.reports.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", "check", "ledger", "error", err)
		checks["ledger"] = err.Error()
		status, code = "degraded", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	JSON(w, code, map[string]any{
		"status":       status,
		"ai_available": h.agent.Available(),
		"checks":       checks,
	})
}
