// Package app wires a daybook session together: configuration, logging,
// storage, the board, its undo/redo history and the event bus.
//
// The history manager takes no locks. Every board mutation and history call
// therefore runs on the session's single dispatch goroutine, submitted
// through Do or one of the helpers built on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/config"
	"github.com/dshills/daybook/internal/event"
	"github.com/dshills/daybook/internal/history"
	"github.com/dshills/daybook/internal/logging"
	"github.com/dshills/daybook/internal/store"
)

// HistoryEvent is the payload of history.* events.
type HistoryEvent struct {
	Op          string
	Kind        history.Kind
	Description string
	State       history.State
	Err         error
}

// Session owns the live state of one daybook run.
type Session struct {
	cfg    *config.Config
	log    *logging.Logger
	store  store.Store
	board  *board.Board
	hist   *history.Manager
	bus    *event.Bus
	boardO []board.Option

	reqs chan request
	quit chan struct{}
	done chan struct{}

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

type request struct {
	fn     func() error
	result chan error
}

// Option configures a Session.
type Option func(*Session)

// WithStore uses st instead of opening the configured store. The session
// takes ownership and closes it.
func WithStore(st store.Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBus sets the event bus.
func WithBus(b *event.Bus) Option {
	return func(s *Session) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithBoardOptions passes options through to board.Open.
func WithBoardOptions(opts ...board.Option) Option {
	return func(s *Session) {
		s.boardO = append(s.boardO, opts...)
	}
}

// New opens the store named by cfg, loads the board and starts the
// dispatch goroutine.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Session{
		cfg:  cfg,
		log:  &logging.Logger{Logger: zap.NewNop(), Level: zap.NewAtomicLevel()},
		bus:  event.NewBus(),
		reqs: make(chan request),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		st, err := openStore(cfg.Store)
		if err != nil {
			return nil, NewOperationError("open store", cfg.Store.Path, err)
		}
		s.store = st
	}

	b, err := board.Open(s.store, s.boardO...)
	if err != nil {
		_ = s.store.Close()
		return nil, NewOperationError("load board", "", err)
	}
	s.board = b
	s.hist = history.New(
		history.WithCapacity(cfg.History.MaxUndo),
		history.WithRedoLimit(cfg.History.MaxRedo),
	)
	s.hist.OnChange(func(st history.State) {
		s.bus.Publish(event.TopicStatusHistory, st)
	})

	go s.loop()

	s.log.Info("session started",
		zap.String("component", "app"),
		zap.Bool("ephemeral", cfg.Store.Ephemeral),
		zap.Int("tasks", len(b.AllTasks())),
		zap.Int("max_undo", cfg.History.MaxUndo),
	)
	return s, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Ephemeral {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(cfg.Path)
}

// Bus returns the session's event bus.
func (s *Session) Bus() *event.Bus {
	return s.bus
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger {
	return s.log.Logger
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case r := <-s.reqs:
			r.result <- s.run(r.fn)
		case <-s.quit:
			return
		}
	}
}

func (s *Session) run(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &RecoveredPanicError{Value: v, Stack: string(debug.Stack())}
			s.log.Error("panic on dispatch goroutine", zap.Any("value", v))
		}
	}()
	return fn()
}

// Do runs fn on the dispatch goroutine with exclusive access to the board
// and history. fn must not call Do or any Session method built on it.
// Handlers subscribed to the bus run on the same goroutine and have the same
// restriction.
func (s *Session) Do(ctx context.Context, fn func(b *board.Board, h *history.Manager) error) error {
	r := request{
		fn:     func() error { return fn(s.board, s.hist) },
		result: make(chan error, 1),
	}
	select {
	case s.reqs <- r:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute applies a and records it in history.
func (s *Session) Execute(ctx context.Context, a history.Executable) error {
	return s.Apply(ctx, func(*board.Board) (history.Executable, error) { return a, nil })
}

// Apply builds an action against the board and executes it. build runs on
// the dispatch goroutine and may read the board.
func (s *Session) Apply(ctx context.Context, build func(b *board.Board) (history.Executable, error)) error {
	return s.Do(ctx, func(b *board.Board, h *history.Manager) error {
		a, err := build(b)
		if err != nil {
			return err
		}
		if err := h.Execute(a); err != nil {
			if errors.Is(err, board.ErrNoChange) {
				s.log.Debug("skipped no-op edit", zap.String("component", "history"), zap.String("kind", string(a.Kind())))
				return nil
			}
			return s.failed("execute", a, err)
		}
		s.log.Debug("pushed",
			zap.String("component", "history"),
			zap.String("kind", string(a.Kind())),
			zap.String("description", a.Description()),
		)
		s.publish(event.TopicHistoryPushed, "execute", a, nil)
		return nil
	})
}

// Undo reverts the most recent action. It returns nil, nil when there is
// nothing to undo.
func (s *Session) Undo(ctx context.Context) (history.Action, error) {
	var done history.Action
	err := s.Do(ctx, func(_ *board.Board, h *history.Manager) error {
		a, err := h.Undo()
		if err != nil {
			return s.failed("undo", actionOf(err), err)
		}
		if a == nil {
			return nil
		}
		done = a
		s.log.Info("undone",
			zap.String("component", "history"),
			zap.String("kind", string(a.Kind())),
			zap.String("description", a.Description()),
		)
		s.publish(event.TopicHistoryUndone, "undo", a, nil)
		return nil
	})
	return done, err
}

// Redo reapplies the most recently undone action. It returns nil, nil when
// there is nothing to redo.
func (s *Session) Redo(ctx context.Context) (history.Action, error) {
	var done history.Action
	err := s.Do(ctx, func(_ *board.Board, h *history.Manager) error {
		a, err := h.Redo()
		if err != nil {
			return s.failed("redo", actionOf(err), err)
		}
		if a == nil {
			return nil
		}
		done = a
		s.log.Info("redone",
			zap.String("component", "history"),
			zap.String("kind", string(a.Kind())),
			zap.String("description", a.Description()),
		)
		s.publish(event.TopicHistoryRedone, "redo", a, nil)
		return nil
	})
	return done, err
}

// Logout ends the user session: both history stacks are cleared so nothing
// from the previous session can be undone.
func (s *Session) Logout(ctx context.Context) error {
	return s.Do(ctx, func(_ *board.Board, h *history.Manager) error {
		h.Clear()
		s.log.Info("history cleared", zap.String("component", "history"), zap.String("reason", "logout"))
		s.publish(event.TopicHistoryCleared, "logout", nil, nil)
		return nil
	})
}

// State returns the current history state.
func (s *Session) State(ctx context.Context) (history.State, error) {
	var st history.State
	err := s.Do(ctx, func(_ *board.Board, h *history.Manager) error {
		st = h.State()
		return nil
	})
	return st, err
}

// Config returns the configuration currently in effect.
func (s *Session) Config(ctx context.Context) (config.Config, error) {
	var cfg config.Config
	err := s.Do(ctx, func(*board.Board, *history.Manager) error {
		cfg = *s.cfg
		return nil
	})
	return cfg, err
}

// ApplyConfig applies the settings that can change at runtime: history
// bounds, log level and toast duration. Store settings take effect on the
// next start.
func (s *Session) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return NewOperationError("apply config", "", err)
	}
	return s.Do(ctx, func(_ *board.Board, h *history.Manager) error {
		if err := s.log.SetLevel(cfg.Log.Level); err != nil {
			return NewOperationError("apply config", "log.level", err)
		}
		h.SetCapacity(cfg.History.MaxUndo)
		h.SetRedoLimit(cfg.History.MaxRedo)

		next := *s.cfg
		next.History = cfg.History
		next.Log.Level = cfg.Log.Level
		next.UI = cfg.UI
		s.cfg = &next

		s.log.Info("config applied",
			zap.String("component", "config"),
			zap.Int("max_undo", cfg.History.MaxUndo),
			zap.Int("max_redo", cfg.History.MaxRedo),
			zap.String("log_level", cfg.Log.Level),
		)
		s.bus.Publish(event.TopicConfigReloaded, next)
		return nil
	})
}

// WatchConfig reloads the configuration file at path whenever it changes
// and applies it. The watcher stops on Close.
func (s *Session) WatchConfig(path string, opts ...config.WatcherOption) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	if s.watchCancel != nil {
		return ErrAlreadyWatching
	}

	w, err := config.NewWatcher(path, opts...)
	if err != nil {
		return NewOperationError("watch config", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	s.watchDone = make(chan struct{})

	go func() {
		defer close(s.watchDone)
		defer w.Close()
		_ = w.Run(ctx, func(cfg *config.Config, err error) {
			if err != nil {
				s.log.Warn("config reload failed", zap.String("component", "config"), zap.Error(err))
				return
			}
			if err := s.ApplyConfig(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("config apply failed", zap.String("component", "config"), zap.Error(err))
			}
		})
	}()
	s.log.Debug("watching config", zap.String("component", "config"), zap.String("path", w.Path()))
	return nil
}

// Close stops the config watcher and the dispatch goroutine, then closes
// the store. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.watchMu.Lock()
		if s.watchCancel != nil {
			s.watchCancel()
			<-s.watchDone
		}
		close(s.quit)
		s.watchMu.Unlock()

		<-s.done
		if err := s.store.Close(); err != nil {
			s.closeErr = NewOperationError("close store", "", err)
		}
		s.log.Info("session closed", zap.String("component", "app"))
	})
	return s.closeErr
}

func (s *Session) failed(op string, a history.Action, err error) error {
	desc := ""
	if a != nil {
		desc = a.Description()
	}
	s.log.Warn(op+" failed",
		zap.String("component", "history"),
		zap.String("description", desc),
		zap.Error(err),
	)
	s.publish(event.TopicHistoryFailed, op, a, err)
	return NewOperationError(op, desc, err)
}

func (s *Session) publish(topic event.Topic, op string, a history.Action, err error) {
	ev := HistoryEvent{Op: op, State: s.hist.State(), Err: err}
	if a != nil {
		ev.Kind = a.Kind()
		ev.Description = a.Description()
	}
	s.bus.Publish(topic, ev)
}

func actionOf(err error) history.Action {
	var ae *history.ActionError
	if errors.As(err, &ae) {
		return ae.Action
	}
	return nil
}
