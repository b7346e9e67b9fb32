package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"alertfilter/api"
	"alertfilter/config"
	"alertfilter/service"
	"alertfilter/util/goroutine"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how NewApp loads configuration and logs.
type Options struct {
	// ConfigPath is an explicit config file; empty searches the defaults
	ConfigPath string
	// LogLevel is the minimum level written to stderr
	LogLevel zapcore.Level
}

// App represents the alert filter application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Storage   *StorageComponents
	Engine    *EngineComponents
	Settings  *service.UserSettingService
	APIServer *api.API

	// Lifecycle
	serviceWg    *sync.WaitGroup
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewApp loads configuration and initializes all components. The API server
// is not started; call Start for that.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	logger, sugar, err := InitLogger(opts.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(opts.ConfigPath, sugar)
	if err != nil {
		return nil, err
	}

	return NewAppWithConfig(ctx, cfg, logger)
}

// NewAppWithConfig initializes all components from an already loaded config.
func NewAppWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Sugar:     logger.Sugar(),
		serviceWg: &sync.WaitGroup{},
	}
	sugar := app.Sugar

	dirs := DataDirectoriesFromConfig(cfg)
	if err := EnsureDataDirectories(dirs, sugar); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	sqlite, err := InitSQLite(dirs, sugar)
	if err != nil {
		return nil, err
	}

	storageComponents, err := InitStorage(ctx, sqlite, cfg, sugar)
	if err != nil {
		_ = sqlite.Close()
		return nil, err
	}
	app.Storage = storageComponents

	app.Engine = InitEngine(cfg, sugar)

	app.Settings = service.NewUserSettingService(
		storageComponents.Users,
		storageComponents.Settings,
		app.Engine.Evaluator,
		app.Engine.RuleCache,
		app.Engine.Limits,
		sugar,
	)

	return app, nil
}

// Start starts background metrics collection and the API server.
func (a *App) Start(ctx context.Context) error {
	if a.APIServer != nil {
		return errors.New("application already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if interval := a.Config.Metrics.CollectionInterval; interval > 0 {
		a.Storage.SQLite.StartMetricsCollection(runCtx, interval)
	}

	a.APIServer = api.NewAPI(a.Settings, a.Storage.SQLite, a.Config, a.Sugar)

	addr := a.Config.ListenAddr()
	goroutine.Go(a.serviceWg, "api-server", a.Sugar, func() {
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server stopped unexpectedly", "error", err, "addr", addr)
		}
	})

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or ctx ends.
func (a *App) WaitForShutdown(ctx context.Context) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}
}

// Shutdown gracefully shuts down all components. It is safe to call more
// than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.Sugar.Info("Shutting down...")

	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	if a.Engine != nil {
		a.Engine.RuleCache.Purge()
	}
	if a.Storage != nil {
		a.Storage.Close(a.Sugar)
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
