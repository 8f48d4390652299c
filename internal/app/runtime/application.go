package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/farm_backoffice/internal/app"
	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/httpapi"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/postgres"
	"github.com/R3E-Network/farm_backoffice/internal/config"
	"github.com/R3E-Network/farm_backoffice/internal/middleware"
	"github.com/R3E-Network/farm_backoffice/internal/platform/database"
	"github.com/R3E-Network/farm_backoffice/internal/platform/migrations"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

const limiterCleanupInterval = 5 * time.Minute

// Application wires configuration, storage and the HTTP server and manages
// their lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	tokens  *auth.Manager
	handler http.Handler
	limiter *middleware.RateLimiter
	server  *http.Server
	db      *sqlx.DB
	closers []io.Closer
}

// NewApplication loads configuration from the environment and builds the
// application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Build(ctx, cfg)
}

// Build constructs the application from an explicit configuration.
func Build(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(cfg.Logging)
	a := &Application{cfg: cfg, log: log}

	stores, err := a.buildStores(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	revocations, err := a.buildRevocations(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure token revocations: %w", err)
	}
	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, revocations, log.Named("auth"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure tokens: %w", err)
	}
	a.tokens = tokens

	application, err := app.New(stores, log,
		app.WithJobs(cfg.Jobs),
		app.WithPasswordCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	if cfg.Auth.AdminEmail != "" {
		admin, created, err := application.Members.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("bootstrap administrator: %w", err)
		}
		if created {
			log.WithField("member_id", admin.ID).Info("bootstrap administrator created")
		}
	}

	audit, err := a.buildAudit()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure audit log: %w", err)
	}

	if cfg.Server.RateLimit > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log.Named("ratelimit"))
	}
	a.handler = httpapi.NewHandler(application, tokens, httpapi.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     a.limiter,
		Audit:       audit,
	}, log.Named("http"))

	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Services exposes the domain application.
func (a *Application) Services() *app.Application {
	return a.app
}

// Run starts services and the HTTP server and blocks until the context is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	if a.limiter != nil {
		a.limiter.StartCleanup(ctx, limiterCleanupInterval)
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, the services and the
// connections they share.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if a.app.Running() {
		if err := a.app.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop services: %w", err))
		}
	}
	a.close()
	return errors.Join(errs...)
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	if !a.cfg.Database.Persistent() {
		a.log.Warn("using in-memory storage; data is lost on restart")
		return app.Stores{}, nil
	}

	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	a.db = db
	a.closers = append(a.closers, db)

	if a.cfg.Database.MigrateOnStart {
		if err := migrations.Up(db.DB); err != nil {
			return app.Stores{}, err
		}
		a.log.Info("database migrations applied")
	}

	store := postgres.New(db)
	return app.Stores{
		Members:    store,
		Zones:      store,
		Parcels:    store,
		Harvesters: store,
		Activities: store,
		Admissions: store,
		Processing: store,
		Inventory:  store,
		Accounting: store,
	}, nil
}

func (a *Application) buildRevocations(ctx context.Context) (auth.Revocations, error) {
	if a.cfg.Redis.URL == "" {
		return auth.NewMemoryRevocations(), nil
	}
	client, err := auth.DialRedis(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	return auth.NewRedisRevocations(client, a.cfg.Redis.KeyPrefix), nil
}

func (a *Application) buildAudit() (*httpapi.AuditLog, error) {
	var sink httpapi.AuditSink
	switch {
	case a.cfg.Audit.Postgres && a.db != nil:
		sink = httpapi.NewPostgresAuditSink(a.db)
	case a.cfg.Audit.File != "":
		fileSink, err := httpapi.NewFileAuditSink(a.cfg.Audit.File)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fileSink)
		sink = fileSink
	}
	return httpapi.NewAuditLog(a.cfg.Audit.Max, sink), nil
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("error closing resource")
		}
	}
	a.closers = nil
}
