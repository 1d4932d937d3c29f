package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
)

// SystemHandler reports on the agent and the machine it runs on
type SystemHandler struct {
	backend  backend.Backend
	accounts *accounts.Service
	logger   *slog.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(b backend.Backend, accountService *accounts.Service, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{backend: b, accounts: accountService, logger: logger}
}

// Health handles GET /api/v1/system/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	health, err := h.backend.GetInfraHealth(r.Context(), list)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.SystemHealth{InfraHealth: *health}
	// whoami is informational only
	if user, err := h.backend.Whoami(r.Context()); err == nil {
		resp.Whoami = user
	} else {
		h.logger.Debug("whoami failed", slog.String("error", err.Error()))
	}
	response.OK(w, resp)
}

// Users handles GET /api/v1/system/users?deep=true
func (h *SystemHandler) Users(w http.ResponseWriter, r *http.Request) {
	deep := r.URL.Query().Get("deep") == "true"
	users, err := h.backend.ListOSUsers(r.Context(), deep)
	if err != nil {
		WriteError(w, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	response.OK(w, response.OSUsers{Users: users})
}
