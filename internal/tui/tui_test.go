package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/daybook/internal/app"
	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/config"
	"github.com/dshills/daybook/internal/event"
	"github.com/dshills/daybook/internal/history"
	"github.com/dshills/daybook/internal/store"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	sim   tcell.SimulationScreen
	mem   *store.Memory
	s     *app.Session
	ui    *UI
	clock time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Ephemeral = true
	mem := store.NewMemory()
	s, err := app.New(cfg, app.WithStore(mem))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sim := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, sim.Init())
	sim.SetSize(160, 16)
	t.Cleanup(sim.Fini)

	h := &harness{t: t, ctx: context.Background(), sim: sim, mem: mem, s: s}
	h.clock = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	ui, err := New(h.ctx, s, sim, WithClock(func() time.Time { return h.clock }))
	require.NoError(t, err)
	require.NoError(t, ui.refresh(h.ctx))
	h.ui = ui
	return h
}

func (h *harness) key(k tcell.Key) error {
	return h.ui.HandleEvent(h.ctx, tcell.NewEventKey(k, 0, tcell.ModNone))
}

func (h *harness) runes(s string) {
	h.t.Helper()
	for _, r := range s {
		require.NoError(h.t, h.ui.HandleEvent(h.ctx, tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)))
	}
}

func (h *harness) addTask(title string) {
	h.t.Helper()
	h.runes("a" + title)
	require.NoError(h.t, h.key(tcell.KeyEnter))
}

// screen returns the drawn screen, one string per row.
func (h *harness) screen() []string {
	h.ui.Draw()
	cells, w, rows := h.sim.GetContents()
	out := make([]string, rows)
	for y := 0; y < rows; y++ {
		var b strings.Builder
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(string(c.Runes))
		}
		out[y] = strings.TrimRight(b.String(), " ")
	}
	return out
}

func (h *harness) statusRow() string {
	rows := h.screen()
	return rows[len(rows)-1]
}

func (h *harness) titles(col board.Column) []string {
	var out []string
	require.NoError(h.t, h.s.Do(h.ctx, func(b *board.Board, _ *history.Manager) error {
		for _, t := range b.Tasks(col) {
			out = append(out, t.Title)
		}
		return nil
	}))
	return out
}

func TestAddTaskFromPrompt(t *testing.T) {
	h := newHarness(t)
	h.addTask("Write report")

	assert.Equal(t, []string{"Write report"}, h.titles(board.ColumnTodo))
	assert.Equal(t, "[undo 1 | redo 0]", h.statusRow())

	rows := h.screen()
	assert.Contains(t, rows[1], "To Do (1)")
	assert.Contains(t, rows[2], "Write report")
}

func TestPromptCancelAndEdit(t *testing.T) {
	h := newHarness(t)
	h.runes("aDraft")
	assert.Contains(t, h.screen()[14], "Add task to To Do: Draft")

	require.NoError(t, h.key(tcell.KeyBackspace2))
	require.NoError(t, h.key(tcell.KeyEscape))
	assert.Empty(t, h.titles(board.ColumnTodo))
	assert.Nil(t, h.ui.prompt)

	// Blank titles are ignored.
	h.runes("a   ")
	require.NoError(t, h.key(tcell.KeyEnter))
	assert.Empty(t, h.titles(board.ColumnTodo))
}

func TestMoveUndoRedo(t *testing.T) {
	h := newHarness(t)
	h.addTask("Write report")

	h.runes(">")
	assert.Equal(t, []string{"Write report"}, h.titles(board.ColumnDoing))
	assert.Equal(t, 1, h.ui.col, "cursor follows the task")

	h.runes("u")
	assert.Equal(t, []string{"Write report"}, h.titles(board.ColumnTodo))
	assert.Equal(t, `[undo 1 | redo 1] Undid: Move "Write report" to doing`, h.statusRow())

	require.NoError(t, h.key(tcell.KeyCtrlR))
	assert.Equal(t, []string{"Write report"}, h.titles(board.ColumnDoing))
	assert.Equal(t, `[undo 2 | redo 0] Redid: Move "Write report" to doing`, h.statusRow())

	require.NoError(t, h.key(tcell.KeyCtrlZ))
	require.NoError(t, h.key(tcell.KeyCtrlY))
	assert.Equal(t, []string{"Write report"}, h.titles(board.ColumnDoing))
}

func TestRenameDeleteAndUndo(t *testing.T) {
	h := newHarness(t)
	h.addTask("Call Bob")

	h.runes("e")
	require.NotNil(t, h.ui.prompt)
	assert.Equal(t, "Call Bob", string(h.ui.prompt.text))
	require.NoError(t, h.key(tcell.KeyCtrlU))
	h.runes("Call Alice")
	require.NoError(t, h.key(tcell.KeyEnter))
	assert.Equal(t, []string{"Call Alice"}, h.titles(board.ColumnTodo))

	h.runes("d")
	assert.Empty(t, h.titles(board.ColumnTodo))

	h.runes("u")
	assert.Equal(t, []string{"Call Alice"}, h.titles(board.ColumnTodo))
	h.runes("u")
	assert.Equal(t, []string{"Call Bob"}, h.titles(board.ColumnTodo))
}

func TestNothingToUndo(t *testing.T) {
	h := newHarness(t)
	h.runes("u")
	assert.Equal(t, "[undo 0 | redo 0] Nothing to undo", h.statusRow())
	require.NoError(t, h.key(tcell.KeyCtrlR))
	assert.Equal(t, "[undo 0 | redo 0] Nothing to redo", h.statusRow())
}

func TestLogoutClearsHistory(t *testing.T) {
	h := newHarness(t)
	h.addTask("a")
	h.addTask("b")
	h.runes("u")

	h.runes("L")
	assert.Equal(t, "[undo 0 | redo 0] Logged out, history cleared", h.statusRow())
	assert.Equal(t, []string{"a"}, h.titles(board.ColumnTodo))
}

func TestFailedUndoShowsError(t *testing.T) {
	h := newHarness(t)
	h.addTask("a")

	h.mem.FailNext(errors.New("disk full"))
	h.runes("u")

	assert.Equal(t, []string{"a"}, h.titles(board.ColumnTodo))
	status := h.statusRow()
	assert.True(t, strings.HasPrefix(status, "[undo 1 | redo 0] Error: undo"), status)
	assert.Contains(t, status, "disk full")
}

func TestToastExpires(t *testing.T) {
	h := newHarness(t)
	h.addTask("a")
	h.runes("u")
	assert.NotEmpty(t, h.ui.Toast())

	h.clock = h.clock.Add(3 * time.Second)
	assert.Empty(t, h.ui.Toast())
	assert.Equal(t, "[undo 0 | redo 1]", h.statusRow())
}

func TestNavigationClamps(t *testing.T) {
	h := newHarness(t)
	h.addTask("a")
	h.addTask("b")

	h.runes("kkk")
	assert.Equal(t, 0, h.ui.row)
	h.runes("jjj")
	assert.Equal(t, 1, h.ui.row)

	require.NoError(t, h.key(tcell.KeyRight))
	assert.Equal(t, 1, h.ui.col)
	assert.Equal(t, 0, h.ui.row)
	h.runes("lll")
	assert.Equal(t, 2, h.ui.col)
	require.NoError(t, h.key(tcell.KeyLeft))
	h.runes("h")
	assert.Equal(t, 0, h.ui.col)

	// Moving left from the first column does nothing.
	h.runes("<")
	assert.Equal(t, []string{"a", "b"}, h.titles(board.ColumnTodo))
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.ui.HandleEvent(h.ctx, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)), errQuit)
	assert.ErrorIs(t, h.key(tcell.KeyCtrlC), errQuit)
}

func TestStatusFollowsHistoryChanges(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.statusRow(), "[undo 0 | redo 0]")

	require.NoError(t, h.ui.HandleEvent(h.ctx, tcell.NewEventInterrupt(event.Event{
		Topic:   event.TopicStatusHistory,
		Payload: history.State{CanUndo: true, CanRedo: true, UndoCount: 2, RedoCount: 1},
	})))
	assert.Contains(t, h.statusRow(), "[undo 2 | redo 1]")
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "[undo 3 | redo 0]", StatusLine(3, 0))
}

func TestRunQuitsOnKey(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Ephemeral = true
	s, err := app.New(cfg)
	require.NoError(t, err)
	defer s.Close()

	sim := tcell.NewSimulationScreen("UTF-8")
	ui, err := New(context.Background(), s, sim)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ui.Run(context.Background()) }()

	// Keys injected before Init are dropped, so keep posting until Run exits.
	time.Sleep(20 * time.Millisecond)
	deadline := time.After(5 * time.Second)
	for {
		sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("Run did not return")
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Ephemeral = true
	s, err := app.New(cfg)
	require.NoError(t, err)
	defer s.Close()

	sim := tcell.NewSimulationScreen("UTF-8")
	ui, err := New(context.Background(), s, sim)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ui.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
