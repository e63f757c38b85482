package tui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/history"
	"github.com/dshills/daybook/internal/ops"
)

// prompt is a single-line text input.
type prompt struct {
	label  string
	text   []rune
	submit func(ctx context.Context, text string) error
}

func (u *UI) openPrompt(label, initial string, submit func(ctx context.Context, text string) error) {
	u.prompt = &prompt{label: label, text: []rune(initial), submit: submit}
}

func (u *UI) handlePromptKey(ctx context.Context, ev *tcell.EventKey) error {
	p := u.prompt
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		u.prompt = nil
	case tcell.KeyEnter:
		u.prompt = nil
		text := strings.TrimSpace(string(p.text))
		if text == "" {
			return nil
		}
		if err := p.submit(ctx, text); err != nil {
			return u.fail(err)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(p.text); n > 0 {
			p.text = p.text[:n-1]
		}
	case tcell.KeyCtrlU:
		p.text = p.text[:0]
	case tcell.KeyRune:
		p.text = append(p.text, ev.Rune())
	}
	return nil
}

func (u *UI) handleKey(ctx context.Context, ev *tcell.EventKey) error {
	if u.prompt != nil {
		return u.handlePromptKey(ctx, ev)
	}

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return errQuit
	case tcell.KeyLeft:
		u.moveCursor(-1, 0)
	case tcell.KeyRight:
		u.moveCursor(1, 0)
	case tcell.KeyUp:
		u.moveCursor(0, -1)
	case tcell.KeyDown:
		u.moveCursor(0, 1)
	case tcell.KeyCtrlZ:
		return u.undo(ctx)
	case tcell.KeyCtrlR, tcell.KeyCtrlY:
		return u.redo(ctx)
	case tcell.KeyRune:
		return u.handleRune(ctx, ev.Rune())
	}
	return nil
}

func (u *UI) handleRune(ctx context.Context, r rune) error {
	switch r {
	case 'q':
		return errQuit
	case 'h':
		u.moveCursor(-1, 0)
	case 'l':
		u.moveCursor(1, 0)
	case 'k':
		u.moveCursor(0, -1)
	case 'j':
		u.moveCursor(0, 1)
	case 'a':
		col := board.Columns[u.col]
		u.openPrompt("Add task to "+col.Title()+": ", "", func(ctx context.Context, title string) error {
			return u.apply(ctx, func(b *board.Board) (history.Executable, error) {
				return ops.NewAddTask(b, title, col), nil
			}, func() { u.row = len(u.columns[u.col]) - 1 })
		})
	case 'e':
		t, ok := u.selected()
		if !ok {
			return nil
		}
		u.openPrompt("Rename: ", t.Title, func(ctx context.Context, title string) error {
			if title == t.Title {
				return nil
			}
			return u.apply(ctx, func(b *board.Board) (history.Executable, error) {
				return ops.NewRenameTask(b, t.ID, title), nil
			}, nil)
		})
	case 'd':
		t, ok := u.selected()
		if !ok {
			return nil
		}
		return u.applyOrFail(ctx, func(b *board.Board) (history.Executable, error) {
			return ops.NewDeleteTask(b, t.ID), nil
		}, nil)
	case '<', '>':
		return u.shiftTask(ctx, r)
	case 'u':
		return u.undo(ctx)
	case 'L':
		return u.logout(ctx)
	}
	return nil
}

func (u *UI) moveCursor(dc, dr int) {
	u.col = min(max(u.col+dc, 0), len(board.Columns)-1)
	u.row += dr
	u.clamp()
}

func (u *UI) shiftTask(ctx context.Context, dir rune) error {
	t, ok := u.selected()
	if !ok {
		return nil
	}
	next := u.col + 1
	if dir == '<' {
		next = u.col - 1
	}
	if next < 0 || next >= len(board.Columns) {
		return nil
	}
	to := board.Columns[next]
	return u.applyOrFail(ctx, func(b *board.Board) (history.Executable, error) {
		return ops.NewMoveTask(b, t.ID, to, -1), nil
	}, func() {
		u.col = next
		u.row = len(u.columns[next]) - 1
	})
}

// apply executes an action and refreshes the board. after runs once the
// board has been reloaded.
func (u *UI) apply(ctx context.Context, build func(*board.Board) (history.Executable, error), after func()) error {
	if err := u.s.Apply(ctx, build); err != nil {
		return err
	}
	if err := u.refresh(ctx); err != nil {
		return err
	}
	if after != nil {
		after()
		u.clamp()
	}
	return nil
}

func (u *UI) applyOrFail(ctx context.Context, build func(*board.Board) (history.Executable, error), after func()) error {
	if err := u.apply(ctx, build, after); err != nil {
		return u.fail(err)
	}
	return nil
}

func (u *UI) undo(ctx context.Context) error {
	a, err := u.s.Undo(ctx)
	if err != nil {
		return u.fail(err)
	}
	if err := u.refresh(ctx); err != nil {
		return err
	}
	if a == nil {
		u.notify("Nothing to undo", false)
		return nil
	}
	u.notify("Undid: "+a.Description(), false)
	return nil
}

func (u *UI) redo(ctx context.Context) error {
	a, err := u.s.Redo(ctx)
	if err != nil {
		return u.fail(err)
	}
	if err := u.refresh(ctx); err != nil {
		return err
	}
	if a == nil {
		u.notify("Nothing to redo", false)
		return nil
	}
	u.notify("Redid: "+a.Description(), false)
	return nil
}

func (u *UI) logout(ctx context.Context) error {
	if err := u.s.Logout(ctx); err != nil {
		return u.fail(err)
	}
	if err := u.refresh(ctx); err != nil {
		return err
	}
	u.notify("Logged out, history cleared", false)
	return nil
}
