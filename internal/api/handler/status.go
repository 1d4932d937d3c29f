package handler

import (
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
	"github.com/mcoot/d2r-multiplay/internal/services/launch"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
)

// StatusHandler handles process status endpoints
type StatusHandler struct {
	poller    *status.Poller
	accounts  *accounts.Service
	sequencer *launch.Sequencer
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(poller *status.Poller, accountService *accounts.Service, sequencer *launch.Sequencer) *StatusHandler {
	return &StatusHandler{poller: poller, accounts: accountService, sequencer: sequencer}
}

// Get handles GET /api/v1/status
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, nil)
}

// Refresh handles POST /api/v1/status/refresh. It polls immediately unless
// a poll is already in flight.
func (h *StatusHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshed := h.poller.Poll(r.Context(), true)
	h.write(w, r, &refreshed)
}

// SetVisibility handles PUT /api/v1/status/visibility
func (h *StatusHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req request.VisibilityRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}
	h.poller.SetVisible(req.Visible)
	h.write(w, r, nil)
}

func (h *StatusHandler) write(w http.ResponseWriter, r *http.Request, refreshed *bool) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.StatusResponse{
		Accounts:  response.StatusFromSnapshot(list, h.poller.Snapshot()),
		Visible:   h.poller.Visible(),
		Launching: h.sequencer.IsLaunching(),
		Refreshed: refreshed,
	}
	if at := h.poller.UpdatedAt(); !at.IsZero() {
		resp.UpdatedAt = &at
	}
	response.OK(w, resp)
}
