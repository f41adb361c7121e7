package submission

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/repo"
)

// Handler serves the submit endpoints and the advisory duplicate checks.
type Handler struct {
	service *Service
	writer  respond.Writer
}

func NewHandler(service *Service, writer respond.Writer) *Handler {
	return &Handler{service: service, writer: writer}
}

// RegisterRoutes mounts the routes behind gate. submitLimit guards the
// write endpoints only.
func (h *Handler) RegisterRoutes(r chi.Router, gate middleware.Gate, submitLimit func(http.Handler) http.Handler) {
	submitters := gate.RequireRoles(repo.SubmitterRoles...)

	r.Group(func(r chi.Router) {
		r.Use(submitLimit, gate.Authenticate, submitters)
		r.Post("/submit-time", h.handleSubmitTime)
		r.Post("/submit-assessment", h.handleSubmitAssessment)
	})

	r.Group(func(r chi.Router) {
		r.Use(gate.Authenticate, submitters)
		r.Post("/check-all-communities-status", h.handleCommunitiesStatus)
		r.Post("/check-community-duplicate", h.handleCommunityDuplicate)
		r.Post("/check-duplicates", h.handleDuplicates)
	})
}

func callerFrom(ctx context.Context) Caller {
	id, _ := middleware.GetIdentity(ctx)
	return Caller{Email: id.Email, Name: id.Name}
}

func (h *Handler) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req AssessmentRequest
	if err := respond.Decode(r, &req); err != nil {
		h.writer.BadBody(w, err, "Invalid request body")
		return
	}

	receipt, err := h.service.SubmitAssessment(ctx, callerFrom(ctx), req)
	if err != nil {
		h.writer.Domain(w, err, "Failed to submit assessment")
		return
	}
	logRequest(ctx, "POST /submit-assessment", req.UserEmail, start)
	respond.JSON(w, http.StatusOK, respond.Payload{
		"message":        "Assessment submitted successfully",
		"count":          receipt.Count,
		"submissionDate": receipt.SubmissionDate,
		"submissionId":   receipt.SubmissionID,
	})
}

func (h *Handler) handleSubmitTime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req TimeRequest
	if err := respond.Decode(r, &req); err != nil {
		h.writer.BadBody(w, err, "Invalid request body")
		return
	}

	receipt, err := h.service.SubmitTime(ctx, callerFrom(ctx), req)
	if err != nil {
		h.writer.Domain(w, err, "Failed to submit time entries")
		return
	}
	logRequest(ctx, "POST /submit-time", req.UserID, start)
	respond.JSON(w, http.StatusOK, respond.Payload{
		"message":        fmt.Sprintf("Successfully submitted %d time entries", receipt.Count),
		"count":          receipt.Count,
		"submissionDate": receipt.SubmissionDate,
		"submissionId":   receipt.SubmissionID,
	})
}

func (h *Handler) decodeQuery(w http.ResponseWriter, r *http.Request) (DuplicateQuery, bool) {
	var q DuplicateQuery
	if err := respond.Decode(r, &q); err != nil {
		h.writer.BadBody(w, err, "Missing required parameters")
		return q, false
	}
	return q, true
}

func (h *Handler) handleCommunitiesStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	ids, err := h.service.SubmittedCommunities(ctx, callerFrom(ctx), q)
	if err != nil {
		h.writer.Domain(w, err, "Failed to check communities status")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{"submittedCommunityIds": ids})
}

func (h *Handler) handleCommunityDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	duplicate, err := h.service.IsDuplicate(ctx, callerFrom(ctx), q)
	if err != nil {
		h.writer.Domain(w, err, "Failed to check for community duplicate")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{"isDuplicate": duplicate})
}

func (h *Handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	names, err := h.service.Duplicates(ctx, callerFrom(ctx), q)
	if err != nil {
		h.writer.Domain(w, err, "Failed to check for duplicates")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Payload{"duplicates": names})
}

func logRequest(ctx context.Context, label, email string, start time.Time) {
	if caller := middleware.GetEmail(ctx); caller != "" {
		email = caller
	}
	reqID := chimiddleware.GetReqID(ctx)
	log.Ctx(ctx).Info().Str("request_id", reqID).Str("email", email).Str("label", label).Dur("duration", time.Since(start)).Msg("submission_request")
}
