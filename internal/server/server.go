// Package server wires the stores, services and handlers together and runs
// the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the database and builds the external clients (LLM,
// literature search, Drive, mail), then hands them to New. New is the
// composition root: it creates every service and handler and mounts the
// routes. Handlers only see services; services only see repository
// interfaces and small client interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/qi-research/internal/auth"
	"github.com/sakif/qi-research/internal/handler"
	"github.com/sakif/qi-research/internal/mail"
	"github.com/sakif/qi-research/internal/middleware"
	sqliteRepo "github.com/sakif/qi-research/internal/repository/sqlite"
	"github.com/sakif/qi-research/internal/service"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Deps are the collaborators built outside the server. Files may be nil:
// document generation then answers with an upstream error.
type Deps struct {
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Mailer    mail.Mailer
	Completer service.Completer
	Search    service.LiteratureSearcher
	Files     service.FileStore
	TmpDir    string
}

// Server owns the router and the database. The database is closed when
// Start returns.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New builds every service and handler and mounts the routes.
func New(cfg Config, db *sqliteRepo.DB, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if cfg.RateLimitEnabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	s.setupRoutes(deps)
	return s
}

// Handler returns the root handler. Tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
// GET    /                                       → greeting
// GET    /healthz, /readyz                       → probes
// POST   /api/register, /api/login               → accounts
// POST   /api/generate-search-query              → LLM search query (public)
// everything else under /api requires a bearer token.
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run before the logger and the rate limiter so both
// see the final request id and client address.
func (s *Server) setupRoutes(deps Deps) {
	users := s.db.Users()
	projects := s.db.Projects()
	keys := s.db.Keys()

	authService := service.NewAuthService(users, deps.Tokens, deps.Passwords, s.logger)
	keyService := service.NewKeyService(users, keys, s.logger)
	projectService := service.NewProjectService(projects, users, s.db.CollaborationRequests(), deps.Mailer, s.logger)
	queryService := service.NewQueryService(keys, deps.Completer, s.logger)
	documentService := service.NewDocumentService(projects, users, keys, deps.Search, deps.Files, deps.TmpDir, s.logger)

	healthHandler := handler.NewHealthHandler(s.db)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	keyHandler := handler.NewKeyHandler(keyService, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.logger)
	queryHandler := handler.NewQueryHandler(queryService, s.logger)
	documentHandler := handler.NewDocumentHandler(documentService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	cors := middleware.DefaultCORSConfig()
	if len(s.config.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = s.config.CORSAllowedOrigins
	}
	s.router.Use(middleware.CORS(cors))

	s.router.Get("/", healthHandler.HandleRoot)
	s.router.Get("/healthz", healthHandler.Healthz)
	s.router.Get("/readyz", healthHandler.Readyz)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/generate-search-query", queryHandler.HandleGenerate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.Tokens, users, s.logger))

			r.Get("/pubmed-key", keyHandler.HandleGetPubMedKey)
			r.Put("/pubmed-key", keyHandler.HandleUpdatePubMedKey)

			r.Get("/gpt-key", keyHandler.HandleGetGPTKey)
			r.Post("/gpt-key", keyHandler.HandleSetGPTKey)
			r.Put("/gpt-key", keyHandler.HandleUpdateGPTKey)

			r.Post("/create-project", projectHandler.HandleCreate)
			r.Get("/projects", projectHandler.HandleList)
			r.Get("/projects/{projectId}", projectHandler.HandleGetByID)
			r.Get("/project{projectId}", projectHandler.HandleGetByID)
			r.Post("/projects/{projectId}/request-collaboration", projectHandler.HandleRequestCollaboration)
			r.Post("/add-collaborator", projectHandler.HandleAddCollaborator)

			r.Post("/generate-document", documentHandler.HandleGenerate)
		})
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan struct{})
	defer close(stop)
	if s.limiter != nil {
		go s.limiter.Run(s.config.RateLimitWindow, stop)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.config.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
