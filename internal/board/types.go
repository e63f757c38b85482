package board

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Board errors.
var (
	// ErrNotFound indicates the referenced item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists indicates an item with the same ID already exists.
	ErrExists = errors.New("already exists")

	// ErrInvalidColumn indicates an unknown kanban column.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrEmptyTitle indicates a blank title or name.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrInvalidProgress indicates a goal progress outside 0..100.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrInvalidDay indicates a habit day not in YYYY-MM-DD form.
	ErrInvalidDay = errors.New("invalid day")

	// ErrNoChange indicates an edit that would leave the board as it is.
	ErrNoChange = errors.New("no change")
)

// Column is a kanban column.
type Column string

// Kanban columns, in display order.
const (
	ColumnTodo  Column = "todo"
	ColumnDoing Column = "doing"
	ColumnDone  Column = "done"
)

// Columns lists all columns in display order.
var Columns = []Column{ColumnTodo, ColumnDoing, ColumnDone}

// ParseColumn parses a column name, case-insensitively.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidColumn, s)
	}
	return c, nil
}

// Valid returns true for the known columns.
func (c Column) Valid() bool {
	return slices.Contains(Columns, c)
}

// Index returns the display index of the column, or -1.
func (c Column) Index() int {
	return slices.Index(Columns, c)
}

// Title returns the column heading.
func (c Column) Title() string {
	switch c {
	case ColumnTodo:
		return "To Do"
	case ColumnDoing:
		return "Doing"
	case ColumnDone:
		return "Done"
	default:
		return string(c)
	}
}

// Task is a kanban card.
type Task struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Column    Column    `yaml:"column"`
	Position  int       `yaml:"position"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Goal is a tracked goal with percentage progress.
type Goal struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Progress  int       `yaml:"progress"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Habit is a daily habit with the days it was completed.
type Habit struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Done      map[string]bool `yaml:"done,omitempty"`
	CreatedAt time.Time       `yaml:"created_at"`
}

// IsDone reports whether the habit was completed on day.
func (h Habit) IsDone(day string) bool {
	return h.Done[day]
}

// Days returns the completed days in ascending order.
func (h Habit) Days() []string {
	return slices.Sorted(maps.Keys(h.Done))
}

// clone returns a copy that shares no map with h.
func (h Habit) clone() Habit {
	h.Done = maps.Clone(h.Done)
	return h
}

// DayLayout is the layout of habit days.
const DayLayout = "2006-01-02"

// Day formats t as a habit day.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay validates a habit day.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day(t), nil
}

// Snapshot is the full persisted content of a board.
type Snapshot struct {
	Tasks  []Task
	Goals  []Goal
	Habits []Habit
}

// Store persists board data.
type Store interface {
	// Load returns everything stored.
	Load() (Snapshot, error)

	// SaveTasks inserts or updates tasks atomically.
	SaveTasks(tasks ...Task) error

	// DeleteTask removes a task and stores the new positions of the
	// remaining tasks in its column, atomically.
	DeleteTask(id string, reordered ...Task) error

	// SaveGoal inserts or updates a goal.
	SaveGoal(g Goal) error

	// DeleteGoal removes a goal.
	DeleteGoal(id string) error

	// SaveHabit inserts or updates a habit.
	SaveHabit(h Habit) error

	// DeleteHabit removes a habit.
	DeleteHabit(id string) error
}
