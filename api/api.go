// Package api exposes the user setting service and the publish alert filter
// over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"

	"alertfilter/config"
	"alertfilter/core"
	"alertfilter/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SettingService is the slice of service.UserSettingService the handlers use
type SettingService interface {
	Authorize(ctx context.Context, actorID, userID int64) error
	CheckPublishFilter(ctx context.Context, userID int64, event *core.Event) (bool, error)
	EvaluateDocument(document []byte, event *core.Event) (bool, error)
	GetSetting(ctx context.Context, actorID, userID int64, name string) (*storage.UserSetting, error)
	ListSettings(ctx context.Context, actorID, userID int64) ([]storage.UserSetting, error)
	SetSetting(ctx context.Context, actorID, userID int64, name string, value []byte) (*storage.UserSetting, error)
	DeleteSetting(ctx context.Context, actorID, userID int64, name string) error
	ValidSettings() []core.SettingDefinition
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API holds the API server
type API struct {
	router      *mux.Router
	serverMu    sync.Mutex
	server      *http.Server
	stopped     bool
	settings    SettingService
	health      HealthChecker
	config      *config.Config
	logger      *zap.SugaredLogger
	validate    *validator.Validate
	rateLimiter *RateLimiter
}

// NewAPI creates a new API server
func NewAPI(settings SettingService, health HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:   mux.NewRouter(),
		settings: settings,
		health:   health,
		config:   cfg,
		logger:   logger,
		validate: validator.New(),
		rateLimiter: NewRateLimiter(
			cfg.API.RateLimit.RequestsPerSecond,
			cfg.API.RateLimit.Burst,
			logger,
		),
	}
	a.setupRoutes()
	return a
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.recoveryMiddleware)
	a.router.Use(a.metricsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)
	a.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := a.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(a.authMiddleware)

	v1.HandleFunc("/settings/valid", a.getValidSettings).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id:[0-9]+}/settings", a.listUserSettings).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id:[0-9]+}/settings/{setting}", a.getUserSetting).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id:[0-9]+}/settings/{setting}", a.setUserSetting).Methods(http.MethodPut)
	v1.HandleFunc("/users/{id:[0-9]+}/settings/{setting}", a.deleteUserSetting).Methods(http.MethodDelete)
	v1.HandleFunc("/users/{id:[0-9]+}/publish-filter/check", a.checkPublishFilter).Methods(http.MethodPost)
	v1.HandleFunc("/rules/evaluate", a.evaluateRule).Methods(http.MethodPost)
}

// Handler returns the root handler, for tests and embedding
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server and blocks until it stops. After Stop it
// returns http.ErrServerClosed immediately.
func (a *API) Start(addr string) error {
	a.serverMu.Lock()
	if a.stopped {
		a.serverMu.Unlock()
		return http.ErrServerClosed
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadTimeout:       a.config.API.ReadTimeout,
		ReadHeaderTimeout: a.config.API.ReadTimeout,
		WriteTimeout:      a.config.API.WriteTimeout,
	}
	a.server = server
	a.serverMu.Unlock()

	a.logger.Infof("API server listening on %s", addr)
	return server.ListenAndServe()
}

// Stop stops the API server and its background workers
func (a *API) Stop(ctx context.Context) error {
	a.rateLimiter.Close()

	a.serverMu.Lock()
	a.stopped = true
	server := a.server
	a.serverMu.Unlock()

	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

