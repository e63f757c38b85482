// Package tui is the terminal kanban board.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/daybook/internal/app"
	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/config"
	"github.com/dshills/daybook/internal/event"
	"github.com/dshills/daybook/internal/history"
)

// errQuit ends the event loop.
var errQuit = errors.New("quit")

// UI is the terminal board. Its fields are owned by the goroutine running
// the event loop.
type UI struct {
	s      *app.Session
	screen tcell.Screen
	log    *zap.Logger
	now    func() time.Time

	columns [3][]board.Task
	col     int
	row     int
	state   history.State

	toast      string
	toastUntil time.Time
	toastFor   time.Duration
	toastErr   bool

	prompt *prompt

	subs []*event.Subscription
}

// Option configures a UI.
type Option func(*UI)

// WithClock sets the clock used for toast expiry.
func WithClock(now func() time.Time) Option {
	return func(u *UI) {
		if now != nil {
			u.now = now
		}
	}
}

// New creates a UI drawing to screen. The screen must not be initialized;
// Run does that.
func New(ctx context.Context, s *app.Session, screen tcell.Screen, opts ...Option) (*UI, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	u := &UI{
		s:        s,
		screen:   screen,
		log:      s.Logger().With(zap.String("component", "tui")),
		now:      time.Now,
		toastFor: cfg.UI.ToastDuration.Std(),
	}
	for _, opt := range opts {
		opt(u)
	}

	// Bus handlers run on the session's dispatch goroutine; forward to the
	// event loop instead of touching UI state there.
	for _, pattern := range []event.Topic{"history.**", event.TopicStatusHistory, event.TopicConfigReloaded} {
		sub, err := s.Bus().Subscribe(pattern, func(ev event.Event) {
			_ = screen.PostEvent(tcell.NewEventInterrupt(ev))
		})
		if err != nil {
			u.unsubscribe()
			return nil, err
		}
		u.subs = append(u.subs, sub)
	}
	return u, nil
}

func (u *UI) unsubscribe() {
	for _, sub := range u.subs {
		sub.Unsubscribe()
	}
	u.subs = nil
}

// Run initializes the screen and processes events until the user quits or
// ctx is done.
func (u *UI) Run(ctx context.Context) error {
	if err := u.screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer u.screen.Fini()
	defer u.unsubscribe()

	u.screen.HideCursor()
	if err := u.refresh(ctx); err != nil {
		return err
	}
	u.Draw()

	stop := context.AfterFunc(ctx, func() {
		_ = u.screen.PostEvent(tcell.NewEventInterrupt(ctx))
	})
	defer stop()

	for {
		ev := u.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := u.HandleEvent(ctx, ev); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
		u.Draw()
	}
}

// HandleEvent applies one terminal event. It returns errQuit when the user
// asks to leave and a non-nil error only for failures the board cannot
// recover from.
func (u *UI) HandleEvent(ctx context.Context, ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventKey:
		return u.handleKey(ctx, ev)
	case *tcell.EventInterrupt:
		return u.handleInterrupt(ctx, ev)
	}
	return nil
}

func (u *UI) handleInterrupt(ctx context.Context, ev *tcell.EventInterrupt) error {
	bev, ok := ev.Data().(event.Event)
	if !ok {
		// Toast expiry or cancellation wake-up; Draw handles both.
		return nil
	}
	switch bev.Topic {
	case event.TopicConfigReloaded:
		if cfg, ok := bev.Payload.(config.Config); ok {
			u.toastFor = cfg.UI.ToastDuration.Std()
		}
		u.notify("Configuration reloaded", false)
		return nil
	case event.TopicStatusHistory:
		if st, ok := bev.Payload.(history.State); ok {
			u.state = st
		}
		return nil
	default:
		if he, ok := bev.Payload.(app.HistoryEvent); ok {
			u.state = he.State
		}
		return u.refreshBoard(ctx)
	}
}

// refresh reloads board contents and history state.
func (u *UI) refresh(ctx context.Context) error {
	if err := u.refreshBoard(ctx); err != nil {
		return err
	}
	st, err := u.s.State(ctx)
	if err != nil {
		return err
	}
	u.state = st
	return nil
}

func (u *UI) refreshBoard(ctx context.Context) error {
	err := u.s.Do(ctx, func(b *board.Board, _ *history.Manager) error {
		for i, col := range board.Columns {
			u.columns[i] = b.Tasks(col)
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.clamp()
	return nil
}

func (u *UI) clamp() {
	n := len(u.columns[u.col])
	switch {
	case n == 0:
		u.row = 0
	case u.row >= n:
		u.row = n - 1
	case u.row < 0:
		u.row = 0
	}
}

// selected returns the task under the cursor.
func (u *UI) selected() (board.Task, bool) {
	tasks := u.columns[u.col]
	if u.row < 0 || u.row >= len(tasks) {
		return board.Task{}, false
	}
	return tasks[u.row], true
}

// notify shows a transient message on the status line.
func (u *UI) notify(msg string, isErr bool) {
	u.toast = msg
	u.toastErr = isErr
	u.toastUntil = u.now().Add(u.toastFor)
	if u.toastFor > 0 {
		time.AfterFunc(u.toastFor, func() {
			_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
		})
	}
}

// Toast returns the visible toast, if any.
func (u *UI) Toast() string {
	if u.toast == "" || !u.now().Before(u.toastUntil) {
		return ""
	}
	return u.toast
}

// fail reports err to the user and logs it. Only session shutdown is fatal.
func (u *UI) fail(err error) error {
	if errors.Is(err, app.ErrClosed) {
		return err
	}
	u.log.Warn("operation failed", zap.Error(err))
	u.notify("Error: "+err.Error(), true)
	return nil
}
