package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/d2r-multiplay/internal/api/handler"
	"github.com/mcoot/d2r-multiplay/internal/api/middleware"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/events"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
	"github.com/mcoot/d2r-multiplay/internal/services/launch"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
	"github.com/mcoot/d2r-multiplay/internal/services/tools"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Backend         backend.Backend
	AccountService  *accounts.Service
	LaunchSequencer *launch.Sequencer
	StatusPoller    *status.Poller
	Notifications   *notify.Channel
	LogSink         *logsink.Sink
	ToolService     *tools.Service
	Events          *events.Hub
	// TokenHash is the bcrypt hash of the API token; empty disables auth
	TokenHash string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	accountHandler := handler.NewAccountHandler(cfg.AccountService)
	launchHandler := handler.NewLaunchHandler(cfg.LaunchSequencer, cfg.Notifications)
	statusHandler := handler.NewStatusHandler(cfg.StatusPoller, cfg.AccountService, cfg.LaunchSequencer)
	notificationHandler := handler.NewNotificationHandler(cfg.Notifications)
	logHandler := handler.NewLogHandler(cfg.LogSink)
	toolHandler := handler.NewToolHandler(cfg.ToolService)
	systemHandler := handler.NewSystemHandler(cfg.Backend, cfg.AccountService, cfg.Logger)
	eventHandler := handler.NewEventHandler(cfg.Events)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.LaunchSequencer)).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(cfg.TokenHash))

	// Identities; /accounts/order must be registered before /accounts/{id}
	protected.HandleFunc("/accounts", accountHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/accounts", accountHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/accounts/order", accountHandler.Reorder).Methods(http.MethodPut)
	protected.HandleFunc("/accounts/{id}", accountHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/accounts/{id}", accountHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/accounts/{id}", accountHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/accounts/{id}/password-policy", accountHandler.SetPasswordPolicy).Methods(http.MethodPut)
	protected.HandleFunc("/accounts/{id}/initialized", accountHandler.Initialized).Methods(http.MethodGet)
	protected.HandleFunc("/accounts/{id}/launch", launchHandler.Launch).Methods(http.MethodPost)

	protected.HandleFunc("/settings", accountHandler.GetSettings).Methods(http.MethodGet)
	protected.HandleFunc("/settings", accountHandler.UpdateSettings).Methods(http.MethodPatch)

	protected.HandleFunc("/status", statusHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/status/refresh", statusHandler.Refresh).Methods(http.MethodPost)
	protected.HandleFunc("/status/visibility", statusHandler.SetVisibility).Methods(http.MethodPut)

	protected.HandleFunc("/notification", notificationHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/notification/actions/{index}", notificationHandler.Choose).Methods(http.MethodPost)
	protected.HandleFunc("/notification/dismiss", notificationHandler.Dismiss).Methods(http.MethodPost)

	protected.HandleFunc("/logs", logHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/logs", logHandler.Clear).Methods(http.MethodDelete)

	protected.HandleFunc("/tools", toolHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/tools/{name}", toolHandler.Run).Methods(http.MethodPost)

	protected.HandleFunc("/system/health", systemHandler.Health).Methods(http.MethodGet)
	protected.HandleFunc("/system/users", systemHandler.Users).Methods(http.MethodGet)

	protected.HandleFunc("/events", eventHandler.Stream).Methods(http.MethodGet)

	return r
}

type healthResponse struct {
	Status    string `json:"status"`
	Launching bool   `json:"launching"`
}

func healthHandler(sequencer *launch.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, healthResponse{Status: "ok", Launching: sequencer.IsLaunching()})
	}
}
