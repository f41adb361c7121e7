package directory

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/repo"
)

// Subjects decides whose data a request reads.
type Subjects interface {
	ResolveSubject(ctx context.Context, caller, requested string) (string, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// Handler serves directory lookups for the community picker and the admin
// impersonation screens.
type Handler struct {
	service           *Service
	subjects          Subjects
	writer            respond.Writer
	questionsRequired bool
}

func NewHandler(service *Service, subjects Subjects, writer respond.Writer, questionsRequired bool) *Handler {
	return &Handler{service: service, subjects: subjects, writer: writer, questionsRequired: questionsRequired}
}

func (h *Handler) RegisterRoutes(r chi.Router, gate middleware.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.Authenticate)
		r.Get("/user-communities", h.handleUserCommunities)
		r.Get("/user", h.handleUser)

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Get("/admin/all-communities", h.handleAllCommunities)
			r.Get("/admin/all-users", h.handleAllUsers)
			r.Get("/admin/user-communities", h.handleCommunitiesOf)
		})
	})
}

func (h *Handler) handleUserCommunities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	q := r.URL.Query()
	caller := middleware.GetEmail(ctx)

	email, err := h.subjects.ResolveSubject(ctx, caller, firstNonEmpty(q.Get("email"), q.Get("userEmail")))
	if err != nil {
		h.writer.Domain(w, err, "Server error")
		return
	}

	if q.Get("adminOverride") == "true" {
		checked := caller
		if checked == "" {
			checked = email
		}
		admin, err := h.subjects.IsAdmin(ctx, checked)
		if err != nil {
			h.writer.Fail(w, http.StatusInternalServerError, "Error verifying admin privileges", err)
			return
		}
		if !admin {
			log.Warn().Str("email", checked).Msg("admin override refused")
			h.writer.Fail(w, http.StatusForbidden, "Admin privileges required for override", nil)
			return
		}
		communities, err := h.service.AllCommunities(ctx)
		if err != nil {
			h.writer.Fail(w, http.StatusInternalServerError, "Server error", err)
			return
		}
		logRequest(ctx, "GET /user-communities?adminOverride", email, start)
		respond.JSON(w, http.StatusOK, respond.Payload{
			"communities":       communities,
			"availableRoles":    []int{},
			"redirectToAdmin":   false,
			"questionsRequired": h.questionsRequired,
		})
		return
	}

	result, err := h.service.UserCommunities(ctx, email)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Server error", err)
		return
	}
	logRequest(ctx, "GET /user-communities", email, start)
	respond.JSON(w, http.StatusOK, respond.Payload{
		"communities":       result.Communities,
		"availableRoles":    result.AvailableRoles,
		"redirectToAdmin":   result.RedirectToAdmin,
		"questionsRequired": h.questionsRequired,
	})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	email, err := h.subjects.ResolveSubject(ctx, middleware.GetEmail(ctx), r.URL.Query().Get("email"))
	if err != nil {
		h.writer.Domain(w, err, "Server error")
		return
	}

	user, err := h.service.User(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		h.writer.Fail(w, http.StatusNotFound, "User not found", nil)
		return
	}
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Server error", err)
		return
	}
	logRequest(ctx, "GET /user", email, start)
	respond.JSON(w, http.StatusOK, respond.Payload{"user": user})
}

func (h *Handler) handleAllCommunities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	communities, err := h.service.AllCommunities(ctx)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Error fetching communities", err)
		return
	}
	logRequest(ctx, "GET /admin/all-communities", middleware.GetEmail(ctx), start)
	respond.JSON(w, http.StatusOK, respond.Payload{"communities": communities})
}

func (h *Handler) handleAllUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	users, err := h.service.AllUsers(ctx)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Error fetching users", err)
		return
	}
	logRequest(ctx, "GET /admin/all-users", middleware.GetEmail(ctx), start)
	respond.JSON(w, http.StatusOK, respond.Payload{"users": users})
}

func (h *Handler) handleCommunitiesOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.writer.Fail(w, http.StatusBadRequest, "Email parameter is required", nil)
		return
	}
	communities, err := h.service.CommunitiesOf(ctx, email)
	if err != nil {
		h.writer.Fail(w, http.StatusInternalServerError, "Error fetching user communities", err)
		return
	}
	logRequest(ctx, "GET /admin/user-communities", middleware.GetEmail(ctx), start)
	respond.JSON(w, http.StatusOK, respond.Payload{"communities": communities})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func logRequest(ctx context.Context, label, email string, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Ctx(ctx).Info().Str("request_id", reqID).Str("email", email).Str("label", label).Dur("duration", time.Since(start)).Msg("directory_request")
}
