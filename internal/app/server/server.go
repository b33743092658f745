package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/core"
	"hradmin/internal/domain/leave"
	"hradmin/internal/domain/notifications"
	"hradmin/internal/domain/reports"
	"hradmin/internal/platform/config"
	"hradmin/internal/platform/db"
	"hradmin/internal/platform/email"
	"hradmin/internal/platform/jobs"
	"hradmin/internal/platform/metrics"
	"hradmin/internal/transport/http/api"
	audithandler "hradmin/internal/transport/http/handlers/audit"
	authhandler "hradmin/internal/transport/http/handlers/auth"
	corehandler "hradmin/internal/transport/http/handlers/core"
	dashboardhandler "hradmin/internal/transport/http/handlers/dashboard"
	leavehandler "hradmin/internal/transport/http/handlers/leave"
	notificationshandler "hradmin/internal/transport/http/handlers/notifications"
	"hradmin/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Leave   *leave.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// Services are the domain services shared by the HTTP API and the operator CLI.
type Services struct {
	Core          *core.Store
	Leave         *leave.Service
	Notifications *notifications.Service
	Audit         *audit.Service
	Jobs          *jobs.Service
	Reports       *reports.Service
	Auth          *auth.Service
}

// NewServices wires the domain services over one pool.
func NewServices(pool *pgxpool.Pool, cfg config.Config) Services {
	coreStore := core.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	jobsSvc := jobs.New(jobs.NewStore(pool))

	leaveSvc := leave.NewService(leaveStore, coreStore, notifySvc, jobsSvc)
	leaveSvc.CCLimit = cfg.CCLimit
	leaveSvc.PendingSLAWorkingDays = cfg.PendingSLAWorkingDays

	return Services{
		Core:          coreStore,
		Leave:         leaveSvc,
		Notifications: notifySvc,
		Audit:         audit.New(pool),
		Jobs:          jobsSvc,
		Reports:       reports.NewService(reports.NewStore(pool), coreStore, leaveStore),
		Auth:          auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL),
	}
}

// Open connects to the database and applies migrations and seed data as configured.
func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return pool, nil
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := NewServices(pool, cfg)
	collector := metrics.New()
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(svc.Auth, svc.Audit).RegisterRoutes(r)
		dashboardhandler.NewHandler(svc.Reports, perms).RegisterRoutes(r)
		corehandler.NewHandler(svc.Core, perms).RegisterRoutes(r)
		leavehandler.NewHandler(svc.Leave, svc.Core, perms, svc.Audit, svc.Jobs, collector).RegisterRoutes(r)
		notificationshandler.NewHandler(svc.Notifications, perms, svc.Audit).RegisterRoutes(r)
		audithandler.NewHandler(svc.Audit, perms).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Leave:   svc.Leave,
		Metrics: collector,
		Router:  router,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("hradmin listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
