package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/daybook/internal/board"
)

const helpText = "a add  e rename  d delete  </> move  u undo  ^R redo  L logout  q quit"

var (
	styleDefault  = tcell.StyleDefault
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleHeader   = tcell.StyleDefault.Bold(true).Underline(true)
	styleSelected = tcell.StyleDefault.Reverse(true)
	styleDim      = tcell.StyleDefault.Dim(true)
	styleToast    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Draw renders the board.
func (u *UI) Draw() {
	s := u.screen
	s.Clear()
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}

	drawText(s, 0, 0, w, styleTitle, "daybook")

	colWidth := w / len(board.Columns)
	for i, col := range board.Columns {
		x := i * colWidth
		width := colWidth - 1
		if i == len(board.Columns)-1 {
			width = w - x
		}
		header := fmt.Sprintf("%s (%d)", col.Title(), len(u.columns[i]))
		drawText(s, x, 1, width, styleHeader, header)

		for j, t := range u.columns[i] {
			y := 2 + j
			if y >= h-2 {
				drawText(s, x, h-3, width, styleDim, fmt.Sprintf("... %d more", len(u.columns[i])-j))
				break
			}
			style := styleDefault
			if i == u.col && j == u.row {
				style = styleSelected
			}
			drawText(s, x, y, width, style, "• "+t.Title)
		}
	}

	if u.prompt != nil {
		line := u.prompt.label + string(u.prompt.text)
		drawText(s, 0, h-2, w, styleDefault, line)
		s.ShowCursor(min(uniseg.StringWidth(line), w-1), h-2)
	} else {
		s.HideCursor()
		drawText(s, 0, h-2, w, styleDim, helpText)
	}

	status := StatusLine(u.state.UndoCount, u.state.RedoCount)
	drawText(s, 0, h-1, w, styleDefault, status)
	if toast := u.Toast(); toast != "" {
		style := styleToast
		if u.toastErr {
			style = styleError
		}
		x := uniseg.StringWidth(status) + 1
		drawText(s, x, h-1, w-x, style, toast)
	}

	s.Show()
}

// StatusLine formats the history counters.
func StatusLine(undo, redo int) string {
	return fmt.Sprintf("[undo %d | redo %d]", undo, redo)
}

// drawText writes str at (x, y), clipped to width cells. It returns the
// number of cells used.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, str string) int {
	used := 0
	g := uniseg.NewGraphemes(str)
	for g.Next() {
		runes := g.Runes()
		cw := g.Width()
		if cw == 0 {
			continue
		}
		if used+cw > width {
			break
		}
		s.SetContent(x+used, y, runes[0], runes[1:], style)
		used += cw
	}
	return used
}
