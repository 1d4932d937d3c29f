package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
)

// AccountHandler handles identity and settings endpoints
type AccountHandler struct {
	accounts *accounts.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *accounts.Service) *AccountHandler {
	return &AccountHandler{accounts: accountService}
}

func accountID(r *http.Request) model.AccountID {
	return model.AccountID(mux.Vars(r)["id"])
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.accounts.Config(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.AccountList{
		Accounts:          response.AccountsFromModel(cfg.Accounts),
		LastActiveAccount: string(cfg.LastActiveAccount),
	})
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAccountRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	account, err := h.accounts.Create(r.Context(), accounts.CreateInput{
		WinUser:              req.WinUser,
		WinPass:              req.WinPass,
		BnetAccount:          req.BnetAccount,
		Note:                 req.Note,
		Avatar:               req.Avatar,
		PasswordNeverExpires: req.PasswordNeverExpires,
		CreateOSUser:         req.CreateOSUser,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AccountFromModel(account))
}

// Get handles GET /api/v1/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), accountID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.AccountFromModel(account))
}

// Update handles PUT /api/v1/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateAccountRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	id := accountID(r)
	existing, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	winPass := existing.WinPass
	if req.WinPass != nil {
		winPass = *req.WinPass
	}

	account, err := h.accounts.Update(r.Context(), id, model.Account{
		WinUser:              req.WinUser,
		WinPass:              winPass,
		BnetAccount:          req.BnetAccount,
		Note:                 req.Note,
		Avatar:               req.Avatar,
		PasswordNeverExpires: req.PasswordNeverExpires,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.AccountFromModel(account))
}

// Delete handles DELETE /api/v1/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), accountID(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Reorder handles PUT /api/v1/accounts/order
func (h *AccountHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req request.ReorderRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	ids := make([]model.AccountID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = model.AccountID(id)
	}
	if err := h.accounts.Reorder(r.Context(), ids); err != nil {
		WriteError(w, err)
		return
	}
	h.List(w, r)
}

// SetPasswordPolicy handles PUT /api/v1/accounts/{id}/password-policy
func (h *AccountHandler) SetPasswordPolicy(w http.ResponseWriter, r *http.Request) {
	var req request.PasswordPolicyRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	account, err := h.accounts.SetPasswordNeverExpires(r.Context(), accountID(r), req.NeverExpires)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.AccountFromModel(account))
}

// Initialized handles GET /api/v1/accounts/{id}/initialized
func (h *AccountHandler) Initialized(w http.ResponseWriter, r *http.Request) {
	id := accountID(r)
	ok, err := h.accounts.CheckInitialized(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.Initialized{AccountID: string(id), Initialized: ok})
}

// GetSettings handles GET /api/v1/settings
func (h *AccountHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.accounts.Config(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.SettingsFromModel(cfg.Settings))
}

// UpdateSettings handles PATCH /api/v1/settings
func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateSettingsRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	if req.GamePath != nil {
		if err := h.accounts.SetGamePath(r.Context(), *req.GamePath); err != nil {
			WriteError(w, err)
			return
		}
	}
	if p := req.Preferences; p != nil {
		prefs := model.Preferences{
			Language:         p.Language,
			ThemeColor:       p.ThemeColor,
			CloseToTray:      p.CloseToTray,
			EnableLogging:    p.EnableLogging,
			MultiAccountMode: p.MultiAccountMode,
			HasShownGuide:    p.HasShownGuide,
			ViewMode:         p.ViewMode,
		}
		if err := h.accounts.UpdatePreferences(r.Context(), prefs); err != nil {
			WriteError(w, err)
			return
		}
	}

	h.GetSettings(w, r)
}
