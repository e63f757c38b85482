// Package ops defines the reversible board actions recorded in history.
//
// Each action is a tagged command value: its Kind names the operation and
// its exported fields carry the data needed to undo and redo it, so actions
// can be inspected and dumped as YAML. Do applies the forward effect; the
// history manager calls Undo and Redo afterwards.
package ops

import (
	"fmt"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/history"
)

// Action kinds.
const (
	KindAddTask      history.Kind = "add-task"
	KindRenameTask   history.Kind = "rename-task"
	KindMoveTask     history.Kind = "move-task"
	KindDeleteTask   history.Kind = "delete-task"
	KindAddGoal      history.Kind = "add-goal"
	KindGoalProgress history.Kind = "set-goal-progress"
	KindDeleteGoal   history.Kind = "delete-goal"
	KindAddHabit     history.Kind = "add-habit"
	KindDeleteHabit  history.Kind = "delete-habit"
	KindToggleHabit  history.Kind = "toggle-habit"
)

// AddTask creates a task.
type AddTask struct {
	Task board.Task `yaml:"task"`

	board *board.Board
}

// NewAddTask returns an action adding a task titled title to col.
func NewAddTask(b *board.Board, title string, col board.Column) *AddTask {
	return &AddTask{
		Task:  board.Task{Title: title, Column: col},
		board: b,
	}
}

func (a *AddTask) Kind() history.Kind { return KindAddTask }

func (a *AddTask) Description() string {
	return fmt.Sprintf("Add task %q", a.Task.Title)
}

// Do creates the task and remembers its ID and position.
func (a *AddTask) Do() error {
	t, err := a.board.AddTask(a.Task.Title, a.Task.Column)
	if err != nil {
		return err
	}
	a.Task = t
	return nil
}

func (a *AddTask) Undo() error {
	_, err := a.board.RemoveTask(a.Task.ID)
	return err
}

func (a *AddTask) Redo() error {
	return a.board.InsertTask(a.Task)
}

// RenameTask changes a task's title.
type RenameTask struct {
	ID   string `yaml:"id"`
	From string `yaml:"from"`
	To   string `yaml:"to"`

	board *board.Board
}

// NewRenameTask returns an action renaming task id to title.
func NewRenameTask(b *board.Board, id, title string) *RenameTask {
	return &RenameTask{ID: id, To: title, board: b}
}

func (a *RenameTask) Kind() history.Kind { return KindRenameTask }

func (a *RenameTask) Description() string {
	return fmt.Sprintf("Rename %q to %q", a.From, a.To)
}

func (a *RenameTask) Do() error {
	old, err := a.board.RenameTask(a.ID, a.To)
	if err != nil {
		return err
	}
	a.From = old
	if t, ok := a.board.Task(a.ID); ok {
		a.To = t.Title
	}
	return nil
}

func (a *RenameTask) Undo() error {
	_, err := a.board.RenameTask(a.ID, a.From)
	return err
}

func (a *RenameTask) Redo() error {
	_, err := a.board.RenameTask(a.ID, a.To)
	return err
}

// MoveTask moves a task between or within columns.
type MoveTask struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title"`
	From    board.Column `yaml:"from"`
	FromPos int          `yaml:"from_pos"`
	To      board.Column `yaml:"to"`
	ToPos   int          `yaml:"to_pos"`

	board *board.Board
}

// NewMoveTask returns an action moving task id to pos in col.
// A negative pos appends to the column.
func NewMoveTask(b *board.Board, id string, col board.Column, pos int) *MoveTask {
	return &MoveTask{ID: id, To: col, ToPos: pos, board: b}
}

func (a *MoveTask) Kind() history.Kind { return KindMoveTask }

func (a *MoveTask) Description() string {
	if a.From == a.To {
		return fmt.Sprintf("Reorder %q", a.Title)
	}
	return fmt.Sprintf("Move %q to %s", a.Title, a.To)
}

// Do moves the task. It returns board.ErrNoChange, and records nothing,
// when the task is already at the target.
func (a *MoveTask) Do() error {
	t, ok := a.board.Task(a.ID)
	if !ok {
		return fmt.Errorf("task %s: %w", a.ID, board.ErrNotFound)
	}
	if t.Column == a.To {
		last := len(a.board.Tasks(a.To)) - 1
		pos := a.ToPos
		if pos < 0 || pos > last {
			pos = last
		}
		if pos == t.Position {
			return fmt.Errorf("task %s: %w", a.ID, board.ErrNoChange)
		}
	}

	from, fromPos, err := a.board.MoveTask(a.ID, a.To, a.ToPos)
	if err != nil {
		return err
	}
	a.From, a.FromPos = from, fromPos
	if t, ok := a.board.Task(a.ID); ok {
		a.Title = t.Title
		a.ToPos = t.Position
	}
	return nil
}

func (a *MoveTask) Undo() error {
	_, _, err := a.board.MoveTask(a.ID, a.From, a.FromPos)
	return err
}

func (a *MoveTask) Redo() error {
	_, _, err := a.board.MoveTask(a.ID, a.To, a.ToPos)
	return err
}

// DeleteTask removes a task.
type DeleteTask struct {
	Task board.Task `yaml:"task"`

	board *board.Board
}

// NewDeleteTask returns an action deleting task id.
func NewDeleteTask(b *board.Board, id string) *DeleteTask {
	return &DeleteTask{Task: board.Task{ID: id}, board: b}
}

func (a *DeleteTask) Kind() history.Kind { return KindDeleteTask }

func (a *DeleteTask) Description() string {
	return fmt.Sprintf("Delete task %q", a.Task.Title)
}

func (a *DeleteTask) Do() error {
	t, err := a.board.RemoveTask(a.Task.ID)
	if err != nil {
		return err
	}
	a.Task = t
	return nil
}

func (a *DeleteTask) Undo() error {
	return a.board.InsertTask(a.Task)
}

func (a *DeleteTask) Redo() error {
	_, err := a.board.RemoveTask(a.Task.ID)
	return err
}

var (
	_ history.Executable = (*AddTask)(nil)
	_ history.Executable = (*RenameTask)(nil)
	_ history.Executable = (*MoveTask)(nil)
	_ history.Executable = (*DeleteTask)(nil)
	_ history.Executable = (*AddGoal)(nil)
	_ history.Executable = (*SetGoalProgress)(nil)
	_ history.Executable = (*DeleteGoal)(nil)
	_ history.Executable = (*AddHabit)(nil)
	_ history.Executable = (*DeleteHabit)(nil)
	_ history.Executable = (*ToggleHabit)(nil)
)
