package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fixversity/internal/domain/identity"
	"fixversity/internal/infrastructure/notify"
	"fixversity/internal/ports"
	"fixversity/internal/usecase/issues"
)

// AuthService is the authentication backend the API fronts.
type AuthService interface {
	SignUp(ctx context.Context, req ports.SignUpRequest) (identity.User, error)
	SignIn(ctx context.Context, email string, password string) (identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (identity.User, error)
}

type Deps struct {
	Auth     AuthService
	Issues   *issues.Service
	Profiles ports.ProfileReader
	Roles    ports.RoleReader
	Hub      *notify.Hub
	// FilesDir is served under /files/; empty disables the route.
	FilesDir string
	// MaxUploadBytes bounds multipart uploads; zero means 10 MiB.
	MaxUploadBytes int64
}

type Server struct {
	auth           AuthService
	issues         *issues.Service
	profiles       ports.ProfileReader
	roles          ports.RoleReader
	hub            *notify.Hub
	filesDir       string
	maxUploadBytes int64

	registry *prometheus.Registry
	metrics  *httpMetrics
}

func NewServer(deps Deps) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Server{
		auth:           deps.Auth,
		issues:         deps.Issues,
		profiles:       deps.Profiles,
		roles:          deps.Roles,
		hub:            deps.Hub,
		filesDir:       deps.FilesDir,
		maxUploadBytes: maxUpload,
		registry:       registry,
		metrics:        newHTTPMetrics(registry),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/auth/signup", s.handleSignUp)
	r.Post("/auth/signin", s.handleSignIn)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/signout", s.handleSignOut)
	r.With(s.authMiddleware).Get("/auth/me", s.handleMe)

	r.Route("/issues", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListAll)
		r.Post("/", s.handleCreateIssue)
		r.Get("/mine", s.handleListMine)
		r.Get("/assigned", s.handleListAssigned)
		r.Get("/{issueID}", s.handleGetIssue)
		r.Patch("/{issueID}", s.handleUpdateIssue)
		r.Post("/{issueID}/rating", s.handleRateIssue)
	})

	r.With(s.authMiddleware).Post("/uploads", s.handleUpload)
	r.With(s.authMiddleware).Get("/workers", s.handleWorkers)
	r.With(s.authMiddleware).Get("/workers/ratings", s.handleWorkerRatings)

	r.Get("/meta/labels", s.handleLabels)
	r.Get("/meta/buildings", s.handleBuildings)

	if s.filesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	}
	if s.hub != nil {
		r.With(s.authMiddleware).Get("/ws", s.handleWS)
	}
	return r
}
