package ops

import (
	"fmt"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/history"
)

// AddGoal creates a goal.
type AddGoal struct {
	Goal board.Goal `yaml:"goal"`

	board *board.Board
}

// NewAddGoal returns an action adding a goal.
func NewAddGoal(b *board.Board, title string) *AddGoal {
	return &AddGoal{Goal: board.Goal{Title: title}, board: b}
}

func (a *AddGoal) Kind() history.Kind { return KindAddGoal }

func (a *AddGoal) Description() string {
	return fmt.Sprintf("Add goal %q", a.Goal.Title)
}

func (a *AddGoal) Do() error {
	g, err := a.board.AddGoal(a.Goal.Title)
	if err != nil {
		return err
	}
	a.Goal = g
	return nil
}

func (a *AddGoal) Undo() error {
	_, err := a.board.RemoveGoal(a.Goal.ID)
	return err
}

func (a *AddGoal) Redo() error {
	return a.board.InsertGoal(a.Goal)
}

// SetGoalProgress changes a goal's progress.
type SetGoalProgress struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	From  int    `yaml:"from"`
	To    int    `yaml:"to"`

	board *board.Board
}

// NewSetGoalProgress returns an action setting goal id to progress.
func NewSetGoalProgress(b *board.Board, id string, progress int) *SetGoalProgress {
	return &SetGoalProgress{ID: id, To: progress, board: b}
}

func (a *SetGoalProgress) Kind() history.Kind { return KindGoalProgress }

func (a *SetGoalProgress) Description() string {
	return fmt.Sprintf("Set %q to %d%%", a.Title, a.To)
}

func (a *SetGoalProgress) Do() error {
	old, err := a.board.SetGoalProgress(a.ID, a.To)
	if err != nil {
		return err
	}
	a.From = old
	if g, ok := a.board.Goal(a.ID); ok {
		a.Title = g.Title
	}
	return nil
}

func (a *SetGoalProgress) Undo() error {
	_, err := a.board.SetGoalProgress(a.ID, a.From)
	return err
}

func (a *SetGoalProgress) Redo() error {
	_, err := a.board.SetGoalProgress(a.ID, a.To)
	return err
}

// DeleteGoal removes a goal.
type DeleteGoal struct {
	Goal board.Goal `yaml:"goal"`

	board *board.Board
}

// NewDeleteGoal returns an action deleting goal id.
func NewDeleteGoal(b *board.Board, id string) *DeleteGoal {
	return &DeleteGoal{Goal: board.Goal{ID: id}, board: b}
}

func (a *DeleteGoal) Kind() history.Kind { return KindDeleteGoal }

func (a *DeleteGoal) Description() string {
	return fmt.Sprintf("Delete goal %q", a.Goal.Title)
}

func (a *DeleteGoal) Do() error {
	g, err := a.board.RemoveGoal(a.Goal.ID)
	if err != nil {
		return err
	}
	a.Goal = g
	return nil
}

func (a *DeleteGoal) Undo() error {
	return a.board.InsertGoal(a.Goal)
}

func (a *DeleteGoal) Redo() error {
	_, err := a.board.RemoveGoal(a.Goal.ID)
	return err
}
