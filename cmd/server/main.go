package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/loomhq/loom/internal/apply"
	"github.com/loomhq/loom/internal/config"
	"github.com/loomhq/loom/internal/connector"
	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/reconcile"
	"github.com/loomhq/loom/internal/httpapi"
	"github.com/loomhq/loom/internal/matcher"
	"github.com/loomhq/loom/internal/scheduler"
	"github.com/loomhq/loom/internal/secret"
	"github.com/loomhq/loom/internal/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := ensureSchema(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	tenantRepo := sqlite.NewTenantRepository(db)
	credentialRepo := sqlite.NewCredentialRepository(db)
	cursorRepo := sqlite.NewCursorRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	workItemRepo := sqlite.NewWorkItemRepository(db)
	decisionRepo := sqlite.NewDecisionRepository(db)
	leaseRepo := sqlite.NewLeaseRepository(db)
	apiKeyRepo := sqlite.NewAPIKeyRepository(db)

	cipher, err := secret.NewAEADCipher(cfg.Secret.Key)
	if err != nil {
		logger.Error("failed to initialize credential cipher", "error", err)
		os.Exit(1)
	}

	credentialSvc := credential.NewService(credentialRepo, cipher, logger)
	activitySvc := activity.NewService(activityRepo, logger)
	decisionSvc := decision.NewService(decisionRepo, activityRepo, logger)

	match := matcher.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, logger)
	engine := reconcile.NewService(activitySvc, workItemRepo, decisionSvc, match,
		reconcile.Policy{
			AutoApplyThreshold: cfg.Reconcile.AutoApplyThreshold,
			ProposeThreshold:   cfg.Reconcile.ProposeThreshold,
			NewWorkThreshold:   cfg.Reconcile.NewWorkThreshold,
		},
		reconcile.Options{
			BatchLimit:    cfg.Reconcile.BatchLimit,
			GroupWindow:   time.Duration(cfg.Reconcile.GroupWindow),
			MaxCandidates: cfg.Reconcile.MaxCandidates,
		},
		logger)

	// Concrete source connectors register here as they are built.
	connectors := connector.Registry{}

	applier := apply.NewApplier(decisionSvc, credentialSvc, connectors, workItemRepo, cfg.Apply.MaxAttempts, logger)

	sched := scheduler.New(
		tenantRepo, credentialSvc, cursorRepo, activitySvc, workItemRepo, leaseRepo,
		engine, applier, connectors,
		scheduler.Options{
			SyncSchedule:         cfg.Scheduler.SyncSchedule,
			DailyDigestSchedule:  cfg.Scheduler.DailyDigestSchedule,
			WeeklyDigestSchedule: cfg.Scheduler.WeeklyDigestSchedule,
			MaxConcurrentRuns:    cfg.Scheduler.MaxConcurrentRuns,
			LeaseTTL:             time.Duration(cfg.Scheduler.LeaseTTL),
		},
		logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	resolver := &apiKeyResolver{keys: apiKeyRepo}
	router := httpapi.NewServer(decisionSvc, credentialSvc, sched, applier, httpapi.AuthMiddleware(resolver))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer, sched, cancel)
}

// ensureSchema runs the embedded migrations on a fresh database and is a
// no-op on an already initialized one.
func ensureSchema(db *sqlite.DB) error {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tenants'`).Scan(&name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	return db.RunMigrations()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, sched *scheduler.Scheduler, cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()
	sched.Stop()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type apiKeyResolver struct {
	keys *sqlite.APIKeyRepository
}

func (r *apiKeyResolver) ResolveTenant(ctx context.Context, token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	return r.keys.Resolve(ctx, hex.EncodeToString(sum[:]))
}
