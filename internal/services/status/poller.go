// Package status keeps a near-real-time snapshot of which OS users have
// the launcher or the game client running.
package status

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/dependencies/clock"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

// AccountLister provides the configured identities to poll for
type AccountLister interface {
	List(ctx context.Context) ([]model.Account, error)
}

// Config holds poller intervals
type Config struct {
	// Interval between scheduled polls while the view is visible
	Interval time.Duration
	// HiddenInterval is the backed-off interval while the view is hidden
	HiddenInterval time.Duration
}

// DefaultConfig returns default poller configuration
func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Second,
		HiddenInterval: 10 * time.Second,
	}
}

// Snapshot maps a lowercased local OS username to its process status
type Snapshot map[string]model.AccountStatus

// For returns the status of the account's OS user
func (s Snapshot) For(account model.Account) model.AccountStatus {
	return s[snapshotKey(account.WinUser)]
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func snapshotKey(user string) string {
	return strings.ToLower(model.LocalUserName(user))
}

// Poller queries the agent for process status. At most one query is in
// flight at a time; a poll requested while one is outstanding is dropped.
type Poller struct {
	backend  backend.Backend
	accounts AccountLister
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	inFlight atomic.Bool
	visible  atomic.Bool
	wake     chan struct{}

	mu        sync.RWMutex
	snapshot  Snapshot
	updatedAt time.Time
	onUpdate  func(Snapshot, time.Time)
}

// New creates a Poller. The view starts visible.
func New(backend backend.Backend, accounts AccountLister, clock clock.Clock, cfg Config, logger *slog.Logger) *Poller {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.HiddenInterval <= 0 {
		cfg.HiddenInterval = defaults.HiddenInterval
	}
	p := &Poller{
		backend:  backend,
		accounts: accounts,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "status")),
		snapshot: Snapshot{},
		wake:     make(chan struct{}, 1),
	}
	p.visible.Store(true)
	return p
}

// Poll refreshes the snapshot. It reports whether a query was issued:
// false when there are no identities or another poll is still in flight.
// Query failures keep the previous snapshot.
func (p *Poller) Poll(ctx context.Context, manual bool) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("poll dropped, another is in flight", slog.Bool("manual", manual))
		return false
	}
	defer p.inFlight.Store(false)

	accounts, err := p.accounts.List(ctx)
	if err != nil {
		p.logger.Warn("failed to list accounts for status poll", slog.String("error", err.Error()))
		return false
	}
	if len(accounts) == 0 {
		return false
	}

	usernames := make([]string, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		key := snapshotKey(a.WinUser)
		if seen[key] {
			continue
		}
		seen[key] = true
		usernames = append(usernames, a.LocalName())
	}

	result, err := p.backend.GetAccountsProcessStatus(ctx, usernames)
	if err != nil {
		p.logger.Warn("status poll failed",
			slog.Bool("manual", manual),
			slog.String("error", err.Error()))
		return true
	}

	next := make(Snapshot, len(result))
	for user, st := range result {
		next[snapshotKey(user)] = st
	}

	p.mu.Lock()
	p.snapshot = next
	p.updatedAt = p.clock.Now()
	updatedAt, onUpdate := p.updatedAt, p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(next.clone(), updatedAt)
	}
	return true
}

// OnUpdate registers fn to be called with a copy of every new snapshot
func (p *Poller) OnUpdate(fn func(Snapshot, time.Time)) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Snapshot returns a copy of the latest status snapshot
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.clone()
}

// UpdatedAt returns when the snapshot was last refreshed
func (p *Poller) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// SetVisible switches between the visible and the backed-off interval.
// Hiding applies from the next scheduled tick; becoming visible again
// cuts the current wait short so Run polls right away.
func (p *Poller) SetVisible(visible bool) {
	if was := p.visible.Swap(visible); visible && !was {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Visible reports whether the view is visible
func (p *Poller) Visible() bool {
	return p.visible.Load()
}

// interval returns the delay before the next scheduled poll
func (p *Poller) interval() time.Duration {
	if p.visible.Load() {
		return p.cfg.Interval
	}
	return p.cfg.HiddenInterval
}

// Run polls until ctx is cancelled. The next tick is only scheduled once
// the previous poll has completed.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("status poller started",
		slog.Duration("interval", p.cfg.Interval),
		slog.Duration("hidden_interval", p.cfg.HiddenInterval))

	for {
		p.Poll(ctx, false)

		select {
		case <-ctx.Done():
			p.logger.Info("status poller stopped")
			return nil
		case <-p.clock.After(p.interval()):
		case <-p.wake:
		}
	}
}
