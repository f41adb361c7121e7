package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/repo"
)

// Subjects resolves whose dashboard a request reads.
type Subjects interface {
	ResolveSubject(ctx context.Context, caller, requested string) (string, error)
}

type Handler struct {
	service  *Service
	subjects Subjects
	writer   respond.Writer
}

func NewHandler(service *Service, subjects Subjects, writer respond.Writer) *Handler {
	return &Handler{service: service, subjects: subjects, writer: writer}
}

func (h *Handler) RegisterRoutes(r chi.Router, gate middleware.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.Authenticate)
		r.Get("/my-submissions", h.handleMySubmissions)
		r.Get("/my-communities", h.handleMyCommunities)
		r.With(gate.RequireRoles(repo.SubmitterRoles...)).Get("/time-entries", h.handleTimeEntries)
		r.With(gate.RequireAdmin).Get("/admin/dashboard", h.handleAdminDashboard)
	})
}

func (h *Handler) subject(r *http.Request) (string, error) {
	ctx := r.Context()
	return h.subjects.ResolveSubject(ctx, middleware.GetEmail(ctx), r.URL.Query().Get("email"))
}

func (h *Handler) period(r *http.Request) (Period, error) {
	q := r.URL.Query()
	return h.service.ParsePeriod(q.Get("month"), q.Get("year"))
}

func (h *Handler) writeReport(w http.ResponseWriter, report Report) {
	respond.JSON(w, http.StatusOK, respond.Payload{
		"summaryStats":       report.SummaryStats,
		"entries":            report.Entries,
		"communityBreakdown": report.CommunityBreakdown,
	})
}

func (h *Handler) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	const failure = "Failed to fetch dashboard data"

	email, err := h.subject(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	p, err := h.period(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	report, err := h.service.MySubmissions(ctx, email, p)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, failure, err)
		return
	}
	logRequest(ctx, "GET /my-submissions", email, start)
	h.writeReport(w, report)
}

func (h *Handler) handleMyCommunities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	const failure = "Failed to fetch my communities dashboard data"

	email, err := h.subject(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	p, err := h.period(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	report, err := h.service.MyCommunities(ctx, email, p)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, failure, err)
		return
	}
	logRequest(ctx, "GET /my-communities", email, start)
	h.writeReport(w, report)
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	const failure = "Failed to fetch admin dashboard data"

	p, err := h.period(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	report, err := h.service.AllCommunities(ctx, p)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, failure, err)
		return
	}
	logRequest(ctx, "GET /admin/dashboard", middleware.GetEmail(ctx), start)
	h.writeReport(w, report)
}

func (h *Handler) handleTimeEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	const failure = "Failed to fetch time entries"

	email, err := h.subject(r)
	if err != nil {
		h.writer.Domain(w, err, failure)
		return
	}
	entries, err := h.service.RecentEntries(ctx, email)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, failure, err)
		return
	}
	logRequest(ctx, "GET /time-entries", email, start)
	respond.JSON(w, http.StatusOK, respond.Payload{"entries": entries, "count": len(entries)})
}

func logRequest(ctx context.Context, label, email string, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Ctx(ctx).Info().Str("request_id", reqID).Str("email", email).Str("label", label).Dur("duration", time.Since(start)).Msg("dashboard_request")
}
