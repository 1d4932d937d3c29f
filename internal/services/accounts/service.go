// Package accounts is the Account Store: the ordered list of identities
// and the rest of the persisted configuration.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/dependencies/idgen"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/storage"
)

// Config holds configuration for the accounts service
type Config struct {
	// AdminTimeout bounds OS user administration calls
	AdminTimeout time.Duration
}

// DefaultConfig returns default accounts configuration
func DefaultConfig() Config {
	return Config{
		AdminTimeout: 15 * time.Second,
	}
}

// CreateInput describes a new identity
type CreateInput struct {
	WinUser              string
	WinPass              string
	BnetAccount          string
	Note                 string
	Avatar               string
	PasswordNeverExpires bool
	// CreateOSUser asks the agent to create the OS user first
	CreateOSUser bool
}

// Service manages identities. OS usernames are unique across identities,
// compared case-insensitively without the domain prefix, because process
// status is keyed by username.
type Service struct {
	storage storage.Storage
	backend backend.Backend
	idgen   idgen.IDGen
	cfg     Config
	logger  *slog.Logger

	// serializes check-then-write sequences
	writeMu sync.Mutex
}

// New creates a new accounts Service
func New(storage storage.Storage, backend backend.Backend, idgen idgen.IDGen, cfg Config, logger *slog.Logger) *Service {
	if cfg.AdminTimeout <= 0 {
		cfg.AdminTimeout = DefaultConfig().AdminTimeout
	}
	return &Service{
		storage: storage,
		backend: backend,
		idgen:   idgen,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "accounts")),
	}
}

// List returns the identities in display order
func (s *Service) List(ctx context.Context) ([]model.Account, error) {
	return s.storage.ListAccounts(ctx)
}

// Get returns one identity
func (s *Service) Get(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return s.storage.GetAccount(ctx, id)
}

// Config returns the whole configuration
func (s *Service) Config(ctx context.Context) (*model.AppConfig, error) {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AppConfig{Accounts: accounts, Settings: *settings}, nil
}

// Create adds an identity at the end of the list
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Account, error) {
	in.WinUser = strings.TrimSpace(in.WinUser)
	if in.WinUser == "" {
		return nil, fmt.Errorf("%w: os username is required", model.ErrInvalidAccount)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkUnique(ctx, "", in.WinUser); err != nil {
		return nil, err
	}

	local := model.LocalUserName(in.WinUser)
	if in.CreateOSUser {
		err := s.admin(ctx, "create os user", func(ctx context.Context) error {
			return s.backend.CreateOSUser(ctx, local, in.WinPass, in.PasswordNeverExpires)
		})
		if err != nil {
			return nil, err
		}
	} else if in.PasswordNeverExpires {
		if err := s.syncPolicy(ctx, local, true); err != nil {
			return nil, err
		}
	}

	account := &model.Account{
		ID:                   model.AccountID(s.idgen.NewID()),
		WinUser:              in.WinUser,
		WinPass:              in.WinPass,
		BnetAccount:          strings.TrimSpace(in.BnetAccount),
		Note:                 in.Note,
		Avatar:               in.Avatar,
		PasswordNeverExpires: in.PasswordNeverExpires,
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		slog.String("account_id", string(account.ID)),
		slog.String("win_user", account.WinUser))
	return account, nil
}

// Update replaces the editable fields of an identity. The ID never changes.
func (s *Service) Update(ctx context.Context, id model.AccountID, updated model.Account) (*model.Account, error) {
	updated.WinUser = strings.TrimSpace(updated.WinUser)
	if updated.WinUser == "" {
		return nil, fmt.Errorf("%w: os username is required", model.ErrInvalidAccount)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, id, updated.WinUser); err != nil {
		return nil, err
	}

	if updated.PasswordNeverExpires != existing.PasswordNeverExpires {
		if err := s.syncPolicy(ctx, model.LocalUserName(updated.WinUser), updated.PasswordNeverExpires); err != nil {
			return nil, err
		}
	}

	updated.ID = id
	if err := s.storage.SaveAccount(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an identity. OS-level resources are left untouched.
func (s *Service) Delete(ctx context.Context, id model.AccountID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.storage.GetAccount(ctx, id); err != nil {
		return err
	}
	if err := s.storage.DeleteAccount(ctx, id); err != nil {
		return err
	}

	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings.LastActiveAccount == id {
		settings.LastActiveAccount = ""
		if err := s.storage.SaveSettings(ctx, settings); err != nil {
			return err
		}
	}

	s.logger.Info("account deleted", slog.String("account_id", string(id)))
	return nil
}

// Reorder sets the display order; ids must list every identity exactly once
func (s *Service) Reorder(ctx context.Context, ids []model.AccountID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.storage.SetAccountOrder(ctx, ids)
}

// SetPasswordNeverExpires syncs the OS password policy and records it
func (s *Service) SetPasswordNeverExpires(ctx context.Context, id model.AccountID, neverExpires bool) (*model.Account, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	account, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.syncPolicy(ctx, account.LocalName(), neverExpires); err != nil {
		return nil, err
	}
	account.PasswordNeverExpires = neverExpires
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CheckInitialized asks the agent whether the identity's OS user has completed first sign-in
func (s *Service) CheckInitialized(ctx context.Context, id model.AccountID) (bool, error) {
	account, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return false, err
	}
	return s.backend.CheckUserInitialization(ctx, account.LocalName())
}

// MarkLastActive records the most recently launched identity
func (s *Service) MarkLastActive(ctx context.Context, id model.AccountID) error {
	return s.updateSettings(ctx, func(settings *model.Settings) {
		settings.LastActiveAccount = id
	})
}

// UpdatePreferences replaces the app-level preferences
func (s *Service) UpdatePreferences(ctx context.Context, prefs model.Preferences) error {
	return s.updateSettings(ctx, func(settings *model.Settings) {
		settings.Preferences = prefs
	})
}

// SetGamePath sets the game installation path passed to every launch
func (s *Service) SetGamePath(ctx context.Context, path string) error {
	return s.updateSettings(ctx, func(settings *model.Settings) {
		settings.GamePath = strings.TrimSpace(path)
	})
}

func (s *Service) updateSettings(ctx context.Context, mutate func(*model.Settings)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return err
	}
	mutate(settings)
	return s.storage.SaveSettings(ctx, settings)
}

func (s *Service) checkUnique(ctx context.Context, self model.AccountID, winUser string) error {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.ID != self && model.SameWinUser(a.WinUser, winUser) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateWinUser, model.LocalUserName(winUser))
		}
	}
	return nil
}

func (s *Service) syncPolicy(ctx context.Context, username string, neverExpires bool) error {
	return s.admin(ctx, "set password policy", func(ctx context.Context) error {
		return s.backend.SetPasswordNeverExpires(ctx, username, neverExpires)
	})
}

// admin runs an OS administration call raced against the admin timeout.
// The call is abandoned, not interrupted, if the agent ignores cancellation.
func (s *Service) admin(ctx context.Context, op string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AdminTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- call(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("admin call timed out",
			slog.String("op", op),
			slog.Duration("timeout", s.cfg.AdminTimeout))
		return fmt.Errorf("%s: %w", op, model.ErrBackendTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
