package http

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/validate"
)

const (
	defaultAccessLogLimit = 100
	maxAccessLogLimit     = 500
)

// ValidateAdmin checks the shared admin secret. It only unlocks admin mode
// in the UI; admin routes re-check the directory on every request.
func (h *Handler) ValidateAdmin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := respond.Decode(r, &payload); err != nil {
		h.writer.Fail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ok, err := h.override.Check(payload.Password)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Server error", err)
		return
	}
	if !ok {
		log.Warn().Str("ip", r.RemoteAddr).Str("path", r.URL.Path).Msg("admin password rejected")
		respond.JSON(w, http.StatusOK, respond.Payload{"success": false, "message": "Invalid admin password"})
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

// Questions serves the assessment prompts. ?type= narrows to one set.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	if kind == "" {
		respond.JSON(w, http.StatusOK, respond.Payload{
			"questions":         h.cfg.Questions,
			"questionsRequired": h.cfg.QuestionsRequired,
		})
		return
	}
	if !validate.IsValidSubmissionType(kind) {
		h.writer.Invalid(w, validate.Fieldf("type", "type must be Manager or Accounting"))
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{
		"questions":         h.cfg.Questions[kind],
		"questionsRequired": h.cfg.QuestionsRequired,
	})
}

// AccessLogs lists recent gate decisions, newest first.
func (h *Handler) AccessLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAccessLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writer.Invalid(w, validate.Fieldf("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAccessLogLimit)
	}

	events, err := h.auditLog.Recent(r.Context(), limit)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Error fetching access logs", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{"events": events, "count": len(events)})
}
