package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/audit"
	"github.com/communitytime/allocation-api/internal/auth"
	"github.com/communitytime/allocation-api/internal/config"
	"github.com/communitytime/allocation-api/internal/dashboard"
	"github.com/communitytime/allocation-api/internal/directory"
	httpmiddleware "github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/service"
	"github.com/communitytime/allocation-api/internal/submission"
)

const maxBodyBytes = 1 << 20

const (
	msgGeneralLimit = "Too many requests from this IP, please try again later"
	msgAuthLimit    = "Too many authentication attempts, please try again later"
	msgSubmitLimit  = "Too many submissions, please try again later"
)

// Limiters holds the three per-IP budgets.
type Limiters struct {
	General httpmiddleware.Limiter
	Auth    httpmiddleware.Limiter
	Submit  httpmiddleware.Limiter
}

// Deps is everything the router mounts. NewRouter builds it over Postgres
// and Redis; tests assemble it from stubs.
type Deps struct {
	Gate        httpmiddleware.Gate
	Limiters    Limiters
	Directory   *directory.Handler
	Submissions *submission.Handler
	Dashboards  *dashboard.Handler
	Override    *service.AdminOverride
	AuditLog    audit.Lister
	Checks      map[string]func(context.Context) error
}

// Handler serves the routes that belong to no domain package.
type Handler struct {
	cfg      *config.Config
	override *service.AdminOverride
	auditLog audit.Lister
	checks   map[string]func(context.Context) error
	writer   respond.Writer
}

// NewRouter wires repositories, services and the gate over pool. A nil
// redisClient keeps rate-limit windows and gate audit events in memory.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, verifier auth.Verifier) http.Handler {
	writer := respond.NewWriter(!cfg.IsProduction())

	directoryRepo := directory.NewRepository(pool)
	rbac := service.NewRBACService(directoryRepo)

	auditLogger := log.With().Str("component", "audit").Logger()
	var (
		recorder audit.Recorder
		lister   audit.Lister
		limiters Limiters
	)
	checks := map[string]func(context.Context) error{"db": pool.Ping}

	if redisClient != nil {
		redisRecorder := audit.NewRedisRecorder(redisClient, cfg.AuditListKey, cfg.AuditMaxEntries, auditLogger)
		recorder, lister = audit.Multi{audit.NewLogRecorder(auditLogger), redisRecorder}, redisRecorder
		limiters = Limiters{
			General: httpmiddleware.NewRedisWindowLimiter(redisClient, "general", cfg.RateLimitGeneral.Max, cfg.RateLimitGeneral.Window),
			Auth:    httpmiddleware.NewRedisWindowLimiter(redisClient, "auth", cfg.RateLimitAuth.Max, cfg.RateLimitAuth.Window),
			Submit:  httpmiddleware.NewRedisWindowLimiter(redisClient, "submit", cfg.RateLimitSubmit.Max, cfg.RateLimitSubmit.Window),
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		memory := audit.NewMemoryRecorder(int(cfg.AuditMaxEntries))
		recorder, lister = audit.Multi{audit.NewLogRecorder(auditLogger), memory}, memory
		limiters = Limiters{
			General: httpmiddleware.NewRateLimiter(cfg.RateLimitGeneral.Max, cfg.RateLimitGeneral.Window),
			Auth:    httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.Max, cfg.RateLimitAuth.Window),
			Submit:  httpmiddleware.NewRateLimiter(cfg.RateLimitSubmit.Max, cfg.RateLimitSubmit.Window),
		}
	}

	submissionService := submission.NewService(submission.NewRepository(pool), rbac, submission.Rules{
		Limits:            cfg.Limits,
		Ranges:            cfg.Questions.Ranges,
		QuestionsRequired: cfg.QuestionsRequired,
	})
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), directoryRepo)

	return Routes(cfg, Deps{
		Gate:        httpmiddleware.NewGate(cfg.StrictAuth, verifier, rbac, recorder),
		Limiters:    limiters,
		Directory:   directory.NewHandler(directory.NewService(directoryRepo), rbac, writer, cfg.QuestionsRequired),
		Submissions: submission.NewHandler(submissionService, writer),
		Dashboards:  dashboard.NewHandler(dashboardService, rbac, writer),
		Override:    service.NewAdminOverride(cfg.AdminPasswordHash, cfg.AdminPassword),
		AuditLog:    lister,
		Checks:      checks,
	})
}

// Routes mounts every route. All API routes live under /api.
func Routes(cfg *config.Config, d Deps) http.Handler {
	h := &Handler{
		cfg:      cfg,
		override: d.Override,
		auditLog: d.AuditLog,
		checks:   d.Checks,
		writer:   respond.NewWriter(!cfg.IsProduction()),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(httpmiddleware.SecureHeaders(cfg.IsProduction()))
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins, !cfg.IsProduction()))
	r.Use(chimiddleware.RequestSize(maxBodyBytes))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.IPRateLimit(d.Limiters.General, msgGeneralLimit))

		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.IPRateLimit(d.Limiters.Auth, msgAuthLimit))
			admin.Post("/admin/validate", h.ValidateAdmin)
			admin.Post("/admin/verify-password", h.ValidateAdmin)
		})

		api.Get("/questions", h.Questions)
		api.With(d.Gate.Authenticate, d.Gate.RequireAdmin).Get("/admin/access-logs", h.AccessLogs)

		directory.Mount(api, d.Directory, d.Gate)
		submission.Mount(api, d.Submissions, d.Gate, httpmiddleware.IPRateLimit(d.Limiters.Submit, msgSubmitLimit))
		dashboard.Mount(api, d.Dashboards, d.Gate)
	})

	return r
}
