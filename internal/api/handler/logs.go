package handler

import (
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
)

// LogHandler exposes the Log Sink
type LogHandler struct {
	sink *logsink.Sink
}

// NewLogHandler creates a new log handler
func NewLogHandler(sink *logsink.Sink) *LogHandler {
	return &LogHandler{sink: sink}
}

// List handles GET /api/v1/logs
func (h *LogHandler) List(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.LogsResponse{
		Entries:  h.sink.Entries(),
		Capacity: h.sink.Capacity(),
	})
}

// Clear handles DELETE /api/v1/logs
func (h *LogHandler) Clear(w http.ResponseWriter, _ *http.Request) {
	h.sink.Clear()
	response.NoContent(w)
}
