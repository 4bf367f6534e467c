package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coursehub-lms/apiserver/config"
	"github.com/coursehub-lms/apiserver/internal/auth"
	"github.com/coursehub-lms/apiserver/internal/db"
	"github.com/coursehub-lms/apiserver/internal/events"
	"github.com/coursehub-lms/apiserver/internal/handlers"
	"github.com/coursehub-lms/apiserver/internal/services"
	"github.com/coursehub-lms/apiserver/internal/storage"
	"github.com/coursehub-lms/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
}

// New constructs a Server: it opens the database, builds the auth
// components from config, selects the storage and events backends, and
// wires every handler explicitly.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	files, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	courseRepo := store.NewCourseRepository(dbConn)

	authService, err := services.NewAuthService(userRepo, hasher, tokens, publisher, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	userService := services.NewUserService(userRepo)
	courseService := services.NewCourseService(courseRepo, files, publisher, logger)

	authMiddleware := handlers.RequireAuth(tokens, logger)
	authHandler := handlers.NewAuthHandler(authService, userService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, authMiddleware)
	})
	router.Route("/courses", func(r chi.Router) {
		handlers.CourseRouter(r, courseService, logger, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// newStorage selects the object storage backend, or returns nil when
// materials are disabled.
func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return wrapped, nil
}

// newPublisher selects the events backend, or returns a no-op publisher
// when events are disabled.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (*events.Publisher, error) {
	var backend events.Backend
	switch cfg.Backend {
	case "", "none":
		return events.NewPublisher(nil, cfg.Channel, logger), nil
	case "rabbitmq":
		client, err := events.NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		backend = client
	case "pubsub":
		client, err := events.NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}

	return events.NewPublisher(backend, cfg.Channel, logger), nil
}
