package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/launch"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
)

// LaunchHandler handles launch requests
type LaunchHandler struct {
	sequencer     *launch.Sequencer
	notifications *notify.Channel
}

// NewLaunchHandler creates a new launch handler
func NewLaunchHandler(sequencer *launch.Sequencer, notifications *notify.Channel) *LaunchHandler {
	return &LaunchHandler{sequencer: sequencer, notifications: notifications}
}

// Launch handles POST /api/v1/accounts/{id}/launch.
// Launch failures are reported through the outcome and the log, not as HTTP errors.
func (h *LaunchHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var req request.LaunchRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	mode := model.LaunchMode(req.Mode)
	if mode == "" {
		mode = model.LaunchModeFull
	}
	if !mode.Valid() {
		WriteError(w, model.ErrInvalidLaunchMode)
		return
	}

	// A launch already handed to the agent outlives the caller's connection
	outcome := h.sequencer.PerformLaunch(context.WithoutCancel(r.Context()), accountID(r), mode, req.Force)

	resp := response.LaunchResponse{
		Outcome:   string(outcome),
		Launching: h.sequencer.IsLaunching(),
	}
	if outcome == launch.OutcomeAwaitingChoice {
		if v, ok := h.notifications.Current(); ok {
			n := response.NotificationFromView(v)
			resp.Notification = &n
		}
	}
	response.OK(w, resp)
}
