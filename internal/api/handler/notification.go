package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
)

// NotificationHandler exposes the blocking notification channel
type NotificationHandler struct {
	channel *notify.Channel
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(channel *notify.Channel) *NotificationHandler {
	return &NotificationHandler{channel: channel}
}

// Get handles GET /api/v1/notification
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.channel.Current()
	if !ok {
		WriteError(w, model.ErrNoNotification)
		return
	}
	response.OK(w, response.NotificationFromView(v))
}

// Choose handles POST /api/v1/notification/actions/{index}. The action runs
// to completion before the response is written; any follow-up notification
// it opened is returned.
func (h *NotificationHandler) Choose(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		WriteError(w, NewInvalidRequestError("Action index must be a number"))
		return
	}

	if err := h.channel.Choose(context.WithoutCancel(r.Context()), index); err != nil {
		WriteError(w, err)
		return
	}

	if v, ok := h.channel.Current(); ok {
		response.OK(w, response.NotificationFromView(v))
		return
	}
	response.NoContent(w)
}

// Dismiss handles POST /api/v1/notification/dismiss
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, _ *http.Request) {
	if err := h.channel.Dismiss(); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}
