package handler

import (
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/events"
	"github.com/mcoot/d2r-multiplay/internal/middleware"
)

// EventHandler streams state changes as Server-Sent Events
type EventHandler struct {
	hub *events.Hub
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub *events.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Stream handles GET /api/v1/events
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	events.ServeSSE(w, r, h.hub, middleware.RequestID(r.Context()))
}
