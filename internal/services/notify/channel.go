// Package notify implements the single-slot blocking notification channel
// used to collect a user decision in the middle of a launch.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/d2r-multiplay/internal/model"
)

// Severity is the visual weight of a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Emphasis is the visual category of an action
type Emphasis string

const (
	EmphasisPrimary   Emphasis = "primary"
	EmphasisSecondary Emphasis = "secondary"
	EmphasisDanger    Emphasis = "danger"
)

// Action is one named choice offered to the user
type Action struct {
	ID       string
	Label    string
	Emphasis Emphasis
	Handler  func(ctx context.Context) error
}

// Notification is a decision point awaiting the user
type Notification struct {
	Title    string
	Message  string
	Severity Severity
	Actions  []Action
	// OnClose runs exactly once when the notification closes, whether
	// through an action or a dismissal
	OnClose func()
}

// ActionView is the serializable form of an Action
type ActionView struct {
	Index    int      `json:"index"`
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Emphasis Emphasis `json:"emphasis"`
}

// View is a read-only snapshot of the open notification
type View struct {
	ID       uint64       `json:"id"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
	Actions  []ActionView `json:"actions"`
	Running  bool         `json:"running"`
}

type slot struct {
	id      uint64
	n       Notification
	running bool
	closed  sync.Once
}

func (s *slot) close() {
	s.closed.Do(func() {
		if s.n.OnClose != nil {
			s.n.OnClose()
		}
	})
}

// Channel holds at most one open notification. Show replaces whatever is
// open; there is no queue.
type Channel struct {
	mu       sync.Mutex
	current  *slot
	nextID   uint64
	onChange func()

	logger *slog.Logger
}

// New creates an empty Channel
func New(logger *slog.Logger) *Channel {
	return &Channel{
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Show opens n, replacing the open notification. A replaced notification
// that is still waiting for a choice is closed as if dismissed; one whose
// action is already running keeps its close for when the action finishes.
func (c *Channel) Show(n Notification) uint64 {
	c.mu.Lock()
	c.nextID++
	prev := c.current
	replaced := prev != nil && !prev.running
	c.current = &slot{id: c.nextID, n: n}
	id := c.nextID
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Debug("notification shown", slog.Uint64("id", id), slog.String("title", n.Title))

	if replaced {
		prev.close()
	}
	notifyChange(onChange)
	return id
}

// OnChange registers fn to be called after the open notification changes:
// shown, replaced, closed, or an action started running
func (c *Channel) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func notifyChange(fn func()) {
	if fn != nil {
		fn()
	}
}

// Current returns the open notification, if any
func (c *Channel) Current() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return View{}, false
	}
	s := c.current
	v := View{
		ID:       s.id,
		Title:    s.n.Title,
		Message:  s.n.Message,
		Severity: s.n.Severity,
		Actions:  make([]ActionView, len(s.n.Actions)),
		Running:  s.running,
	}
	for i, a := range s.n.Actions {
		v.Actions[i] = ActionView{Index: i, ID: a.ID, Label: a.Label, Emphasis: a.Emphasis}
	}
	return v, true
}

// IsOpen reports whether a notification is open
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Choose runs the handler of the action at index, then closes the
// notification. Handler errors and panics are logged, never returned.
func (c *Channel) Choose(ctx context.Context, index int) error {
	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return model.ErrNoNotification
	}
	if s.running {
		c.mu.Unlock()
		return model.ErrActionInFlight
	}
	if index < 0 || index >= len(s.n.Actions) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", model.ErrInvalidAction, index)
	}
	s.running = true
	action := s.n.Actions[index]
	onChange := c.onChange
	c.mu.Unlock()
	notifyChange(onChange)

	c.logger.Debug("notification action chosen",
		slog.Uint64("id", s.id),
		slog.String("action", action.ID))

	c.runHandler(ctx, s.id, action)

	// The handler may have shown a follow-up notification; only clear the
	// slot if it still holds the one the action belonged to.
	c.mu.Lock()
	cleared := c.current == s
	if cleared {
		c.current = nil
	}
	onChange = c.onChange
	c.mu.Unlock()

	s.close()
	if cleared {
		notifyChange(onChange)
	}
	return nil
}

func (c *Channel) runHandler(ctx context.Context, id uint64, action Action) {
	if action.Handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification action panicked",
				slog.Uint64("id", id),
				slog.String("action", action.ID),
				slog.Any("panic", r))
		}
	}()
	if err := action.Handler(ctx); err != nil {
		c.logger.Error("notification action failed",
			slog.Uint64("id", id),
			slog.String("action", action.ID),
			slog.String("error", err.Error()))
	}
}

// Dismiss closes the open notification without running any action
func (c *Channel) Dismiss() error {
	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return model.ErrNoNotification
	}
	if s.running {
		c.mu.Unlock()
		return model.ErrActionInFlight
	}
	c.current = nil
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Debug("notification dismissed", slog.Uint64("id", s.id))
	s.close()
	notifyChange(onChange)
	return nil
}
