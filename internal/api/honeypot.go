package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ashureev/honeypot/internal/domain"
)

// Honeypot handles one inbound scammer message.
func (h *Handler) Honeypot(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.svc.Process(r.Context(), req)
	if err != nil {
		// Only an invariant violation reaches here; never mask it.
		h.logger.Error("Failed to process message", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Analyze scores a message without engaging or touching session state.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.svc.Analyze(req))
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (domain.HoneypotRequest, bool) {
	var req domain.HoneypotRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return req, false
		}
		Error(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return req, false
	}
	if req.ConversationHistory == nil {
		req.ConversationHistory = []domain.Message{}
	}
	if err := h.validate.Struct(req); err != nil {
		Error(w, http.StatusUnprocessableEntity, validationDetail(err))
		return req, false
	}
	return req, true
}

// validationDetail renders validator errors as "field: rule" pairs.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "HoneypotRequest.")
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters long", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
