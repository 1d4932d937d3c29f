package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/services/tools"
)

// ToolHandler handles the manual maintenance tools
type ToolHandler struct {
	tools *tools.Service
}

// NewToolHandler creates a new tool handler
func NewToolHandler(toolService *tools.Service) *ToolHandler {
	return &ToolHandler{tools: toolService}
}

// List handles GET /api/v1/tools
func (h *ToolHandler) List(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.ToolList{Tools: h.tools.Tools()})
}

// Run handles POST /api/v1/tools/{name}
func (h *ToolHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req request.RunToolRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	name := mux.Vars(r)["name"]
	result, err := h.tools.Run(r.Context(), name, req.Args, req.Confirm)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.ToolResult{Tool: name, Result: result})
}
