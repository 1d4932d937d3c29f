// Package launch drives one identity from "launch requested" to a terminal
// state, pausing on the notification channel whenever the agent reports a
// condition that needs the user's decision.
package launch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
)

// Outcome is where a PerformLaunch call left the launch
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeFailed         Outcome = "failed"
	OutcomeAwaitingChoice Outcome = "awaiting_choice"
)

// Action IDs offered on launch notifications
const (
	ActionCancel     = "cancel"
	ActionDelete     = "delete_and_continue"
	ActionReset      = "reset_and_continue"
	ActionSwitchUser = "switch_user"
	ActionUnderstand = "understand"
	ActionForce      = "ignore_and_launch"
)

// MessageLauncherNotFound replaces the raw agent error when the launcher binary is missing
const MessageLauncherNotFound = "Battle.net launcher not found. Check the installation path in settings."

// AccountSource provides the configured identities
type AccountSource interface {
	Config(ctx context.Context) (*model.AppConfig, error)
	MarkLastActive(ctx context.Context, id model.AccountID) error
}

// Sequencer runs launch attempts. Attempts for different identities may be
// in flight at the same time; the agent is the authority on exclusion.
type Sequencer struct {
	backend  backend.Backend
	accounts AccountSource
	notifier *notify.Channel
	sink     *logsink.Sink
	logger   *slog.Logger

	mu     sync.Mutex
	active int
}

// New creates a Sequencer
func New(
	backend backend.Backend,
	accounts AccountSource,
	notifier *notify.Channel,
	sink *logsink.Sink,
	logger *slog.Logger,
) *Sequencer {
	return &Sequencer{
		backend:  backend,
		accounts: accounts,
		notifier: notifier,
		sink:     sink,
		logger:   logger.With(slog.String("component", "launch")),
	}
}

// IsLaunching reports whether any launch chain is still active
func (s *Sequencer) IsLaunching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active > 0
}

// chain is one logical launch: the first attempt plus every retry the user
// consents to. Retries reuse the chain so the launching flag is released
// exactly once per PerformLaunch call.
type chain struct {
	account  model.Account
	gamePath string
	mode     model.LaunchMode

	// kinds already resolved once in this chain; a repeat is terminal
	resolved map[backend.Kind]bool
	release  func()
}

func (s *Sequencer) begin(account model.Account, gamePath string, mode model.LaunchMode) *chain {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	var once sync.Once
	return &chain{
		account:  account,
		gamePath: gamePath,
		mode:     mode,
		resolved: make(map[backend.Kind]bool),
		release: func() {
			once.Do(func() {
				s.mu.Lock()
				s.active--
				s.mu.Unlock()
			})
		},
	}
}

// PerformLaunch launches the identity with the given mode. It returns once
// the launch succeeds, fails, or is waiting on a notification; in the last
// case the chosen action continues the launch.
func (s *Sequencer) PerformLaunch(ctx context.Context, id model.AccountID, mode model.LaunchMode, force bool) Outcome {
	if !mode.Valid() {
		s.sink.Error(model.LogCategoryLaunch, fmt.Sprintf("Launch failed: %v %q", model.ErrInvalidLaunchMode, mode))
		return OutcomeFailed
	}

	cfg, err := s.accounts.Config(ctx)
	if err != nil {
		s.sink.Error(model.LogCategoryLaunch, fmt.Sprintf("Launch failed: %v", err))
		return OutcomeFailed
	}
	account := cfg.FindAccount(id)
	if account == nil {
		s.sink.Error(model.LogCategoryLaunch, fmt.Sprintf("Launch failed: %v: %s", model.ErrAccountNotFound, id))
		return OutcomeFailed
	}

	c := s.begin(*account, cfg.GamePath, mode)
	return s.attempt(ctx, c, force, true)
}

// attempt runs the pre-flight check (when asked) and the primary launch call
func (s *Sequencer) attempt(ctx context.Context, c *chain, force, preflight bool) Outcome {
	if preflight {
		s.preflight(ctx, c)
	}

	s.sink.Info(model.LogCategoryLaunch, fmt.Sprintf("Launching %s (%s, %s)%s",
		c.account.BnetAccount, c.account.WinUser, c.mode, forceSuffix(force)))

	result, err := s.backend.Launch(ctx, c.account, c.gamePath, c.mode, force)
	if err == nil {
		s.sink.Success(model.LogCategoryLaunch, fmt.Sprintf("%s: %s", c.account.BnetAccount, result))
		if err := s.accounts.MarkLastActive(ctx, c.account.ID); err != nil {
			s.logger.Warn("failed to record last active account",
				slog.String("account_id", string(c.account.ID)),
				slog.String("error", err.Error()))
		}
		c.release()
		return OutcomeSucceeded
	}

	le := backend.AsLaunchError(err)
	s.logger.Debug("launch attempt failed",
		slog.String("account_id", string(c.account.ID)),
		slog.String("kind", le.Kind.String()),
		slog.Bool("force", force))

	if le.Kind.Recoverable() && c.resolved[le.Kind] {
		return s.fail(c, "Launch failed after retry: "+le.Message)
	}

	switch le.Kind {
	case backend.KindConflict:
		s.promptConflict(c, force)
		return OutcomeAwaitingChoice
	case backend.KindUserUninitialized:
		s.promptUninitialized(c)
		return OutcomeAwaitingChoice
	case backend.KindLauncherNotFound:
		return s.fail(c, MessageLauncherNotFound)
	default:
		return s.fail(c, "Launch failed: "+le.Message)
	}
}

func (s *Sequencer) fail(c *chain, message string) Outcome {
	s.sink.Error(model.LogCategoryLaunch, message)
	c.release()
	return OutcomeFailed
}

// preflight is advisory: problems are logged as warnings, call failures
// only reach the process log.
func (s *Sequencer) preflight(ctx context.Context, c *chain) {
	health, err := s.backend.GetInfraHealth(ctx, []model.Account{c.account})
	if err != nil {
		s.logger.Warn("infra health check failed",
			slog.String("account_id", string(c.account.ID)),
			slog.String("error", err.Error()))
		return
	}
	if issues := healthIssues(health, c.account); len(issues) > 0 {
		s.sink.Warn(model.LogCategoryLaunch, "Pre-flight check: "+strings.Join(issues, "; "))
	}
}

func healthIssues(h *model.InfraHealth, account model.Account) []string {
	var issues []string
	if !h.AgentConfigWritable {
		issues = append(issues, "launcher configuration is not writable")
	}
	if !h.BnetPathValid {
		issues = append(issues, "Battle.net installation path is invalid")
	}
	for user, ready := range h.ProfilesReady {
		if !ready && model.SameWinUser(user, account.WinUser) {
			issues = append(issues, fmt.Sprintf("profile for %s is not ready", account.LocalName()))
		}
	}
	return issues
}

func (s *Sequencer) promptConflict(c *chain, force bool) {
	var resumed atomic.Bool

	resolve := func(action backend.ConflictAction) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			if err := s.backend.ResolveConflict(ctx, c.account.ID, action); err != nil {
				s.fail(c, fmt.Sprintf("Conflict resolution (%s) failed: %v", action, err))
				return nil
			}
			s.sink.Info(model.LogCategoryLaunch, fmt.Sprintf("Conflict resolved (%s), retrying launch", action))
			c.resolved[backend.KindConflict] = true
			resumed.Store(true)
			s.attempt(ctx, c, force, false)
			return nil
		}
	}

	s.notifier.Show(notify.Notification{
		Title:    "Save archive conflict",
		Message:  fmt.Sprintf("A leftover archive from a previous session would collide with %s.", c.account.BnetAccount),
		Severity: notify.SeverityWarning,
		Actions: []notify.Action{
			{
				ID:       ActionCancel,
				Label:    "Cancel",
				Emphasis: notify.EmphasisSecondary,
				Handler: func(context.Context) error {
					s.sink.Info(model.LogCategoryLaunch, "Launch cancelled")
					c.release()
					return nil
				},
			},
			{ID: ActionDelete, Label: "Delete and continue", Emphasis: notify.EmphasisSecondary, Handler: resolve(backend.ConflictDelete)},
			{ID: ActionReset, Label: "Reset and continue", Emphasis: notify.EmphasisPrimary, Handler: resolve(backend.ConflictReset)},
		},
		OnClose: func() {
			if !resumed.Load() {
				c.release()
			}
		},
	})
}

func (s *Sequencer) promptUninitialized(c *chain) {
	var resumed atomic.Bool
	message := fmt.Sprintf("%s has never completed a first sign-in. Launching under it may fail or corrupt its profile.",
		c.account.LocalName())

	s.notifier.Show(notify.Notification{
		Title:    "User not initialized",
		Message:  message,
		Severity: notify.SeverityWarning,
		Actions: []notify.Action{
			{
				ID:       ActionSwitchUser,
				Label:    "Switch user",
				Emphasis: notify.EmphasisPrimary,
				Handler: func(ctx context.Context) error {
					if err := s.backend.OpenUserSwitch(ctx); err != nil {
						s.logger.Warn("failed to open user switch", slog.String("error", err.Error()))
					}
					s.sink.Info(model.LogCategoryLaunch,
						fmt.Sprintf("Sign in as %s once, then launch again", c.account.LocalName()))
					return nil
				},
			},
			{
				ID:       ActionUnderstand,
				Label:    "I understand",
				Emphasis: notify.EmphasisSecondary,
				Handler: func(context.Context) error {
					s.sink.Info(model.LogCategoryLaunch, "Launch aborted")
					c.release()
					return nil
				},
			},
			{
				ID:       ActionForce,
				Label:    "Ignore and launch",
				Emphasis: notify.EmphasisDanger,
				Handler: func(ctx context.Context) error {
					c.resolved[backend.KindUserUninitialized] = true
					resumed.Store(true)
					s.attempt(ctx, c, true, true)
					return nil
				},
			},
		},
		OnClose: func() {
			if !resumed.Load() {
				c.release()
			}
		},
	})
}

func forceSuffix(force bool) string {
	if force {
		return " [force]"
	}
	return ""
}
