package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeDuplicateWinUser     = "DUPLICATE_WIN_USER"
	CodeInvalidAccount       = "INVALID_ACCOUNT"
	CodeInvalidOrder         = "INVALID_ORDER"
	CodeInvalidLaunchMode    = "INVALID_LAUNCH_MODE"
	CodeNoNotification       = "NO_NOTIFICATION"
	CodeInvalidAction        = "INVALID_ACTION"
	CodeActionInFlight       = "ACTION_IN_FLIGHT"
	CodeUnknownTool          = "UNKNOWN_TOOL"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeBackendTimeout       = "BACKEND_TIMEOUT"
	CodeBackendError         = "BACKEND_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Agent errors carry their own message; it is what the user needs to see
	var rpcErr *backend.RPCError
	if errors.As(err, &rpcErr) {
		return &httpError{http.StatusBadGateway, APIError{CodeBackendError, rpcErr.Message}}
	}
	var transportErr *backend.TransportError
	if errors.As(err, &transportErr) {
		return &httpError{http.StatusBadGateway, APIError{CodeBackendError, "The agent is not reachable"}}
	}

	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAccountNotFound, "Account not found"}}
	case errors.Is(err, model.ErrDuplicateWinUser):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateWinUser, "OS user is already bound to another account"}}
	case errors.Is(err, model.ErrInvalidAccount):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidAccount, err.Error()}}
	case errors.Is(err, model.ErrInvalidOrder):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidOrder, "Order must list every account exactly once"}}
	case errors.Is(err, model.ErrInvalidLaunchMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLaunchMode, "Mode must be full or bnet_only"}}
	case errors.Is(err, model.ErrNoNotification):
		return &httpError{http.StatusNotFound, APIError{CodeNoNotification, "No notification is open"}}
	case errors.Is(err, model.ErrInvalidAction):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidAction, "No such action on the open notification"}}
	case errors.Is(err, model.ErrActionInFlight):
		return &httpError{http.StatusConflict, APIError{CodeActionInFlight, "An action is already running"}}
	case errors.Is(err, model.ErrUnknownTool):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownTool, "Unknown tool"}}
	case errors.Is(err, model.ErrConfirmationRequired):
		return &httpError{http.StatusPreconditionFailed, APIError{CodeConfirmationRequired, "Type yes to confirm"}}
	case errors.Is(err, model.ErrBackendTimeout):
		return &httpError{http.StatusGatewayTimeout, APIError{CodeBackendTimeout, "The agent did not answer in time"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
