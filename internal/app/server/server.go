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

	"github.com/jackc/pgx/v5/pgxpool"

	"paie/internal/domain/audit"
	"paie/internal/domain/auth"
	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
	"paie/internal/domain/payslip"
	"paie/internal/domain/reports"
	"paie/internal/domain/settings"
	"paie/internal/domain/spreadsheet"
	"paie/internal/platform/cache"
	"paie/internal/platform/config"
	cryptoutil "paie/internal/platform/crypto"
	"paie/internal/platform/db"
	"paie/internal/platform/jobs"
	"paie/internal/platform/metrics"
	"paie/internal/platform/storage"
	"paie/internal/requestctx"
	audithandler "paie/internal/transport/http/handlers/audit"
	authhandler "paie/internal/transport/http/handlers/auth"
	employeeshandler "paie/internal/transport/http/handlers/employees"
	payrollhandler "paie/internal/transport/http/handlers/payroll"
	reportshandler "paie/internal/transport/http/handlers/reports"
	settingshandler "paie/internal/transport/http/handlers/settings"
	"paie/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	jobs   *jobs.Service
	cache  cache.Cache
}

// Run starts the API and blocks until SIGINT or SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("payroll server listening", "addr", cfg.Addr, "env", cfg.Environment)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	stop()
	app.jobs.Wait()
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(requestctx.NewLogHandler(handler)).With("service", "paie")
}

// New connects the infrastructure and assembles every service and handler.
// The job worker stops when ctx is cancelled.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	rates, err := config.LoadRates(cfg.RatesFile)
	if err != nil {
		return nil, err
	}
	calc, err := payroll.NewCalculator(rates)
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !crypto.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set, bank accounts and payslips are stored in clear")
	}
	blobs, err := newBlobs(ctx, cfg, crypto)
	if err != nil {
		pool.Close()
		return nil, err
	}
	reportCache := newCache(cfg)
	collector := metrics.New()

	jobStore := jobs.NewStore(pool)
	jobsSvc := jobs.New(jobStore, 0)
	jobsSvc.Start(ctx)

	employeeSvc := employee.NewService(employee.NewStore(pool, crypto))
	settingsSvc := settings.NewService(settings.NewStore(pool), employeeSvc)
	payrollSvc := payroll.NewService(payroll.NewStore(pool), calc, employeeSvc, settingsSvc, jobsSvc)
	reportsSvc := reports.NewService(reports.NewStore(pool), jobStore, reportCache, cfg.Redis.TTL, collector)
	payrollSvc.AddListener(reportsSvc)
	payslipSvc := payslip.NewService(payrollSvc, employeeSvc, settingsSvc, rates, blobs)
	authSvc := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL)
	auditSvc := audit.New(pool)
	perms := auth.RoleChecker{}

	router := newRouter(cfg, collector, pool.Ping,
		authhandler.NewHandler(authSvc, perms, auditSvc),
		employeeshandler.NewHandler(employeeSvc, spreadsheet.NewImporter(employeeSvc), perms, auditSvc, cfg.MaxImportBytes),
		payrollhandler.NewHandler(payrollSvc, payslipSvc, perms, auditSvc, middleware.NewIdempotencyStore(pool), collector, cfg.MaxImportBytes),
		reportshandler.NewHandler(reportsSvc, perms),
		settingshandler.NewHandler(settingsSvc, rates, perms, auditSvc),
		audithandler.NewHandler(auditSvc, perms),
	)

	return &App{Config: cfg, DB: pool, Router: router, jobs: jobsSvc, cache: reportCache}, nil
}

func (a *App) Close() {
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("cache close failed", "err", err)
		}
	}
	a.DB.Close()
}

// newCache prefers Redis and falls back to process memory when Redis is not
// configured or unreachable.
func newCache(cfg config.Config) cache.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory()
	}
	rdb, err := cache.NewRedis(cache.ConnectionInfo{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		Prefix:     cfg.Redis.Prefix,
		MaxRetries: 2,
	})
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "addr", cfg.Redis.Addr, "err", err)
		return cache.NewMemory()
	}
	return rdb
}

func newBlobs(ctx context.Context, cfg config.Config, crypto *cryptoutil.Service) (storage.Blobs, error) {
	var blobs storage.Blobs
	if cfg.S3.Endpoint != "" {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
		})
		if err != nil {
			return nil, err
		}
		blobs = s3
	} else {
		local, err := storage.NewLocal(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		blobs = local
	}
	if crypto.Configured() {
		blobs = storage.Encrypted{Blobs: blobs, Crypto: crypto}
	}
	return blobs, nil
}
