package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/internal/db"
	"github.com/zidesign/catalog/internal/handlers"
	"github.com/zidesign/catalog/internal/metrics"
	"github.com/zidesign/catalog/internal/mq"
	"github.com/zidesign/catalog/internal/services"
	"github.com/zidesign/catalog/internal/storage"
	"github.com/zidesign/catalog/internal/store"
)

const redisPingTimeout = 3 * time.Second

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	redis      *redis.Client
	log        logrus.FieldLogger
}

// Deps are the collaborators the router needs. Images, Events and Redis
// are optional.
type Deps struct {
	Config  config.Config
	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
	DB      *sql.DB
	Driver  db.Driver
	Images  *storage.Images
	Events  *mq.MQ
	Redis   *redis.Client
}

// New opens every configured backend and builds the server.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, driver, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Server{db: dbConn, log: log}
	deps := Deps{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
		DB:      dbConn,
		Driver:  driver,
	}

	if deps.Images, err = storage.Open(ctx, cfg.Storage); err != nil {
		s.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if deps.Events, err = mq.Open(ctx, cfg.MQ); err != nil {
		s.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	s.mq = deps.Events

	if cfg.Redis.URL != "" {
		if deps.Redis, err = openRedis(ctx, cfg.Redis.URL); err != nil {
			s.close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		s.redis = deps.Redis
	}

	log.WithFields(logrus.Fields{
		"db":      string(driver),
		"storage": backendName(cfg.Storage.Backend),
		"mq":      backendName(cfg.MQ.Backend),
		"redis":   deps.Redis != nil,
	}).Info("backends ready")

	s.router = NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter builds the HTTP routes over deps.
func NewRouter(deps Deps) *chi.Mux {
	userService := services.NewUserService(
		store.NewUserRepository(deps.DB, deps.Driver),
		deps.Config.AdminEmails,
		deps.Log,
		deps.Metrics,
	)

	opts := []services.WorkOption{services.WithMetrics(deps.Metrics)}
	if deps.Images != nil {
		opts = append(opts, services.WithImages(deps.Images))
	}
	if deps.Events != nil {
		opts = append(opts, services.WithEvents(deps.Events))
	}
	workService := services.NewWorkService(store.NewWorkRepository(deps.DB, deps.Driver), deps.Log, opts...)

	authHandler := handlers.NewAuthHandler(userService, deps.Config.JWTSecret, deps.Log)
	workHandler := handlers.NewWorkHandler(workService, deps.Log)

	var submitLimiter func(http.Handler) http.Handler
	if deps.Redis != nil {
		submitLimiter = handlers.RateLimit(
			deps.Redis,
			deps.Config.RateLimit.Submissions,
			deps.Config.RateLimit.Window,
			handlers.KeyBySubject("submit"),
			deps.Log,
		)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(deps.Log),
		deps.Metrics.Middleware,
		middleware.Timeout(60*time.Second),
		handlers.LimitBody(deps.Config.MaxBodyBytes),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/works", func(r chi.Router) {
		handlers.WorksRouter(r, workHandler, authHandler.RequireActor, submitLimiter)
	})
	return router
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func backendName(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
