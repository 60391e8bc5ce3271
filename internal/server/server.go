package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pubfeed/apiserver/config"
	"github.com/pubfeed/apiserver/internal/db"
	"github.com/pubfeed/apiserver/internal/handlers"
	"github.com/pubfeed/apiserver/internal/mq"
	"github.com/pubfeed/apiserver/internal/services"
	"github.com/pubfeed/apiserver/internal/storage"
	"github.com/pubfeed/apiserver/internal/store"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	database   *mongo.Database
	queue      *mq.MQ
	log        *logrus.Logger
}

// New constructs a Server with its full dependency graph.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logrus.New()

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	imageStorage, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = db.Close(context.Background(), database)
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if imageStorage != nil {
		if err := imageStorage.EnsureBucket(ctx); err != nil {
			_ = db.Close(context.Background(), database)
			return nil, fmt.Errorf("ensure image bucket: %w", err)
		}
	}

	queue, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = db.Close(context.Background(), database)
		return nil, fmt.Errorf("init mq: %w", err)
	}

	userRepo := store.NewUserRepository(database)
	postRepo := store.NewPostRepository(database)

	authService := services.NewAuthService(userRepo, cfg.JWTSecret, log)

	var publisher services.Publisher
	if queue != nil {
		publisher = queue
	}
	postService := services.NewPostService(postRepo, userRepo, publisher, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Group(func(r chi.Router) {
		r.Use(handlers.WithIdentity(authService))
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService)
		})
		r.Route("/posts", func(r chi.Router) {
			handlers.PostRouter(r, postService)
		})
		if imageStorage != nil {
			r.Route("/images", func(r chi.Router) {
				handlers.ImageRouter(r, imageStorage)
			})
		}
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
		database:   database,
		queue:      queue,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.database != nil {
		_ = db.Close(context.Background(), s.database)
	}
	return s.httpServer.Close()
}
