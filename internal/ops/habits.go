package ops

import (
	"fmt"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/history"
)

// AddHabit creates a habit.
type AddHabit struct {
	Habit board.Habit `yaml:"habit"`

	board *board.Board
}

// NewAddHabit returns an action adding a habit.
func NewAddHabit(b *board.Board, name string) *AddHabit {
	return &AddHabit{Habit: board.Habit{Name: name}, board: b}
}

func (a *AddHabit) Kind() history.Kind { return KindAddHabit }

func (a *AddHabit) Description() string {
	return fmt.Sprintf("Add habit %q", a.Habit.Name)
}

func (a *AddHabit) Do() error {
	h, err := a.board.AddHabit(a.Habit.Name)
	if err != nil {
		return err
	}
	a.Habit = h
	return nil
}

func (a *AddHabit) Undo() error {
	_, err := a.board.RemoveHabit(a.Habit.ID)
	return err
}

func (a *AddHabit) Redo() error {
	return a.board.InsertHabit(a.Habit)
}

// DeleteHabit removes a habit along with its completed days.
type DeleteHabit struct {
	Habit board.Habit `yaml:"habit"`

	board *board.Board
}

// NewDeleteHabit returns an action deleting habit id.
func NewDeleteHabit(b *board.Board, id string) *DeleteHabit {
	return &DeleteHabit{Habit: board.Habit{ID: id}, board: b}
}

func (a *DeleteHabit) Kind() history.Kind { return KindDeleteHabit }

func (a *DeleteHabit) Description() string {
	return fmt.Sprintf("Delete habit %q", a.Habit.Name)
}

func (a *DeleteHabit) Do() error {
	h, err := a.board.RemoveHabit(a.Habit.ID)
	if err != nil {
		return err
	}
	a.Habit = h
	return nil
}

func (a *DeleteHabit) Undo() error {
	return a.board.InsertHabit(a.Habit)
}

func (a *DeleteHabit) Redo() error {
	_, err := a.board.RemoveHabit(a.Habit.ID)
	return err
}

// ToggleHabit flips a habit's completion for one day.
type ToggleHabit struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Day  string `yaml:"day"`
	Done bool   `yaml:"done"` // state after the toggle

	board *board.Board
}

// NewToggleHabit returns an action toggling habit id on day.
func NewToggleHabit(b *board.Board, id, day string) *ToggleHabit {
	return &ToggleHabit{ID: id, Day: day, board: b}
}

func (a *ToggleHabit) Kind() history.Kind { return KindToggleHabit }

func (a *ToggleHabit) Description() string {
	if a.Done {
		return fmt.Sprintf("Mark %q done for %s", a.Name, a.Day)
	}
	return fmt.Sprintf("Unmark %q for %s", a.Name, a.Day)
}

func (a *ToggleHabit) Do() error {
	h, ok := a.board.Habit(a.ID)
	if !ok {
		return fmt.Errorf("habit %s: %w", a.ID, board.ErrNotFound)
	}
	day, err := board.ParseDay(a.Day)
	if err != nil {
		return err
	}
	a.Name = h.Name
	a.Day = day
	a.Done = !h.IsDone(day)
	_, err = a.board.SetHabitDone(a.ID, a.Day, a.Done)
	return err
}

func (a *ToggleHabit) Undo() error {
	_, err := a.board.SetHabitDone(a.ID, a.Day, !a.Done)
	return err
}

func (a *ToggleHabit) Redo() error {
	_, err := a.board.SetHabitDone(a.ID, a.Day, a.Done)
	return err
}
