package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/history"
	"github.com/dshills/daybook/internal/ops"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

// Result summarizes a successful run.
type Result struct {
	// Edits is the number of board edits the script made.
	Edits int
}

// Runner executes scripts against a board and its history. A Runner must
// be used from the goroutine that owns the board and history.
type Runner struct {
	board   *board.Board
	hist    *history.Manager
	out     io.Writer
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	// per-run state
	name    string
	journal []change
	edits   int
	cause   error
}

// change is one board effect made during a run, in the order applied.
type change struct {
	action history.Action
	undone bool // the run undid action rather than applying it
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where print writes.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithClock sets the clock used for the default habit day.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a Runner for b and h.
func NewRunner(b *board.Board, h *history.Manager, opts ...Option) *Runner {
	r := &Runner{
		board:   b,
		hist:    h,
		out:     io.Discard,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunString runs code. name labels the history entry and errors.
func (r *Runner) RunString(ctx context.Context, name, code string) (Result, error) {
	return r.run(ctx, name, func(s *State, ctx context.Context) error {
		return s.DoString(ctx, code)
	})
}

// RunFile runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	return r.run(ctx, filepath.Base(path), func(s *State, ctx context.Context) error {
		return s.DoFile(ctx, path)
	})
}

func (r *Runner) run(ctx context.Context, name string, exec func(*State, context.Context) error) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	s := NewState(r.out)
	defer s.Close()
	r.install(s.L)

	r.name = "Run " + name
	r.journal = nil
	r.edits = 0
	r.cause = nil

	log := r.log.With(zap.String("component", "script"), zap.String("script", name))
	start := time.Now()

	cp := r.hist.Checkpoint()
	err := r.hist.Transaction(r.name, func() error {
		return exec(s, ctx)
	})
	if err != nil {
		err = r.reason(err)
		if rbErr := r.rollback(cp); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		log.Warn("script failed", zap.Error(err))
		return Result{}, &Error{Script: name, Err: err}
	}

	log.Info("script finished", zap.Int("edits", r.edits), zap.Duration("elapsed", time.Since(start)))
	return Result{Edits: r.edits}, nil
}

// reason returns the Go error behind a failed run when the script died
// from it, and err otherwise. A board error the script caught with pcall
// does not count.
func (r *Runner) reason(err error) error {
	if r.cause == nil {
		return err
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil &&
		strings.HasSuffix(apiErr.Object.String(), r.cause.Error()) {
		return r.cause
	}
	return err
}

// rollback reverts every board effect of the run, newest first, then puts
// history back to cp.
func (r *Runner) rollback(cp history.Checkpoint) error {
	var errs []error
	for _, c := range slices.Backward(r.journal) {
		revert := c.action.Undo
		if c.undone {
			revert = c.action.Redo
		}
		if err := revert(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.action.Description(), err))
		}
	}
	r.journal = nil
	r.hist.Restore(cp)
	return errors.Join(errs...)
}

// execute applies a and records it in the open group. Edits that change
// nothing are skipped.
func (r *Runner) execute(L *lua.LState, a history.Executable) {
	if err := r.hist.Execute(a); err != nil {
		if errors.Is(err, board.ErrNoChange) {
			return
		}
		r.raise(L, err)
	}
	r.journal = append(r.journal, change{action: a})
	r.edits++
}

// raise aborts the script with err, keeping err for the caller.
func (r *Runner) raise(L *lua.LState, err error) {
	r.cause = err
	L.RaiseError("%s", err.Error())
}

func (r *Runner) install(L *lua.LState) {
	b := L.NewTable()
	L.SetFuncs(b, map[string]lua.LGFunction{
		"add_task":          r.addTask,
		"move_task":         r.moveTask,
		"rename_task":       r.renameTask,
		"delete_task":       r.deleteTask,
		"tasks":             r.tasks,
		"add_goal":          r.addGoal,
		"set_goal_progress": r.setGoalProgress,
		"add_habit":         r.addHabit,
		"toggle_habit":      r.toggleHabit,
	})
	L.SetGlobal("board", b)

	h := L.NewTable()
	L.SetFuncs(h, map[string]lua.LGFunction{
		"undo":     r.undo,
		"redo":     r.redo,
		"can_undo": r.canUndo,
		"can_redo": r.canRedo,
	})
	L.SetGlobal("history", h)
}

func (r *Runner) column(L *lua.LState, name string) board.Column {
	col, err := board.ParseColumn(name)
	if err != nil {
		r.raise(L, err)
	}
	return col
}

func (r *Runner) addTask(L *lua.LState) int {
	title := L.CheckString(1)
	col := r.column(L, L.OptString(2, string(board.ColumnTodo)))
	a := ops.NewAddTask(r.board, title, col)
	r.execute(L, a)
	L.Push(lua.LString(a.Task.ID))
	return 1
}

func (r *Runner) moveTask(L *lua.LState) int {
	id := L.CheckString(1)
	col := r.column(L, L.CheckString(2))
	pos := L.OptInt(3, 0) - 1 // Lua positions are 1-based; 0 appends.
	r.execute(L, ops.NewMoveTask(r.board, id, col, pos))
	return 0
}

func (r *Runner) renameTask(L *lua.LState) int {
	r.execute(L, ops.NewRenameTask(r.board, L.CheckString(1), L.CheckString(2)))
	return 0
}

func (r *Runner) deleteTask(L *lua.LState) int {
	r.execute(L, ops.NewDeleteTask(r.board, L.CheckString(1)))
	return 0
}

func (r *Runner) tasks(L *lua.LState) int {
	var list []board.Task
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		list = r.board.Tasks(r.column(L, L.CheckString(1)))
	} else {
		list = r.board.AllTasks()
	}

	out := L.CreateTable(len(list), 0)
	for _, t := range list {
		row := L.CreateTable(0, 4)
		row.RawSetString("id", lua.LString(t.ID))
		row.RawSetString("title", lua.LString(t.Title))
		row.RawSetString("column", lua.LString(t.Column))
		row.RawSetString("position", lua.LNumber(t.Position+1))
		out.Append(row)
	}
	L.Push(out)
	return 1
}

func (r *Runner) addGoal(L *lua.LState) int {
	a := ops.NewAddGoal(r.board, L.CheckString(1))
	r.execute(L, a)
	L.Push(lua.LString(a.Goal.ID))
	return 1
}

func (r *Runner) setGoalProgress(L *lua.LState) int {
	r.execute(L, ops.NewSetGoalProgress(r.board, L.CheckString(1), L.CheckInt(2)))
	return 0
}

func (r *Runner) addHabit(L *lua.LState) int {
	a := ops.NewAddHabit(r.board, L.CheckString(1))
	r.execute(L, a)
	L.Push(lua.LString(a.Habit.ID))
	return 1
}

func (r *Runner) toggleHabit(L *lua.LState) int {
	day := L.OptString(2, board.Day(r.now()))
	r.execute(L, ops.NewToggleHabit(r.board, L.CheckString(1), day))
	return 0
}

// undo seals the edits made so far, undoes the newest history entry and
// opens a fresh group for the rest of the script.
func (r *Runner) undo(L *lua.LState) int {
	return r.step(L, r.hist.Undo, true)
}

func (r *Runner) redo(L *lua.LState) int {
	return r.step(L, r.hist.Redo, false)
}

func (r *Runner) step(L *lua.LState, fn func() (history.Action, error), undone bool) int {
	a, err := fn()
	r.hist.BeginGroup(r.name)
	if err != nil {
		r.raise(L, err)
	}
	if a == nil {
		L.Push(lua.LNil)
		return 1
	}
	r.journal = append(r.journal, change{action: a, undone: undone})
	L.Push(lua.LString(a.Description()))
	return 1
}

func (r *Runner) canUndo(L *lua.LState) int {
	L.Push(lua.LBool(r.hist.CanUndo()))
	return 1
}

func (r *Runner) canRedo(L *lua.LState) int {
	L.Push(lua.LBool(r.hist.CanRedo()))
	return 1
}
