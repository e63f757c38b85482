package board

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Board is the in-memory view of the stored productivity data.
//
// A Board is not safe for concurrent use.
type Board struct {
	store Store

	tasks   map[string]Task
	columns map[Column][]string // task IDs in position order

	goals  []Goal  // ordered by CreatedAt, then ID
	habits []Habit // ordered by CreatedAt, then ID

	now   func() time.Time
	newID func() string
}

// Option configures a Board.
type Option func(*Board)

// WithClock sets the time source for new items.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator sets the ID source for new items.
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// Open loads a board from store.
func Open(store Store, opts ...Option) (*Board, error) {
	b := &Board{
		store:   store,
		tasks:   make(map[string]Task),
		columns: make(map[Column][]string),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}

	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	b.restore(snap)
	return b, nil
}

// restore replaces the in-memory state with snap, normalizing positions.
func (b *Board) restore(snap Snapshot) {
	byColumn := make(map[Column][]Task)
	for _, t := range snap.Tasks {
		if !t.Column.Valid() {
			continue
		}
		byColumn[t.Column] = append(byColumn[t.Column], t)
	}

	for _, col := range Columns {
		tasks := byColumn[col]
		slices.SortStableFunc(tasks, func(a, b Task) int {
			return cmp.Or(
				cmp.Compare(a.Position, b.Position),
				a.CreatedAt.Compare(b.CreatedAt),
				cmp.Compare(a.ID, b.ID),
			)
		})
		ids := make([]string, len(tasks))
		for i, t := range tasks {
			t.Position = i
			b.tasks[t.ID] = t
			ids[i] = t.ID
		}
		b.columns[col] = ids
	}

	for _, g := range snap.Goals {
		b.goals = insertOrdered(b.goals, g, goalKey)
	}
	for _, h := range snap.Habits {
		b.habits = insertOrdered(b.habits, h.clone(), habitKey)
	}
}

// Tasks

// Task returns the task with the given ID.
func (b *Board) Task(id string) (Task, bool) {
	t, ok := b.tasks[id]
	return t, ok
}

// Tasks returns the tasks of a column in position order.
func (b *Board) Tasks(col Column) []Task {
	ids := b.columns[col]
	out := make([]Task, len(ids))
	for i, id := range ids {
		out[i] = b.tasks[id]
	}
	return out
}

// AllTasks returns every task, column by column.
func (b *Board) AllTasks() []Task {
	var out []Task
	for _, col := range Columns {
		out = append(out, b.Tasks(col)...)
	}
	return out
}

// AddTask appends a new task to the end of a column.
func (b *Board) AddTask(title string, col Column) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	if !col.Valid() {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
	}

	t := Task{
		ID:        b.newID(),
		Title:     title,
		Column:    col,
		Position:  len(b.columns[col]),
		CreatedAt: b.now(),
	}
	if err := b.store.SaveTasks(t); err != nil {
		return Task{}, fmt.Errorf("add task: %w", err)
	}

	b.tasks[t.ID] = t
	b.columns[col] = append(b.columns[col], t.ID)
	return t, nil
}

// InsertTask puts a previously removed task back at its position, clamped
// to the column length.
func (b *Board) InsertTask(t Task) error {
	if _, ok := b.tasks[t.ID]; ok {
		return fmt.Errorf("insert task %s: %w", t.ID, ErrExists)
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Column.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, t.Column)
	}

	ids := slices.Clone(b.columns[t.Column])
	pos := min(max(t.Position, 0), len(ids))
	ids = slices.Insert(ids, pos, t.ID)

	changed := b.reposition(t.Column, ids, &t)
	if err := b.store.SaveTasks(changed...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	b.commit(changed, map[Column][]string{t.Column: ids})
	return nil
}

// RenameTask changes a task's title and returns the previous one.
func (b *Board) RenameTask(id, title string) (string, error) {
	t, ok := b.tasks[id]
	if !ok {
		return "", fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}

	old := t.Title
	t.Title = title
	if err := b.store.SaveTasks(t); err != nil {
		return "", fmt.Errorf("rename task: %w", err)
	}

	b.tasks[id] = t
	return old, nil
}

// MoveTask moves a task to pos within col and returns where it was.
// A negative or out of range pos moves the task to the end of col.
func (b *Board) MoveTask(id string, col Column, pos int) (Column, int, error) {
	t, ok := b.tasks[id]
	if !ok {
		return "", 0, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if !col.Valid() {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
	}

	from, fromPos := t.Column, t.Position

	src := slices.DeleteFunc(slices.Clone(b.columns[from]), func(s string) bool { return s == id })
	dst := src
	if col != from {
		dst = slices.Clone(b.columns[col])
	}
	if pos < 0 || pos > len(dst) {
		pos = len(dst)
	}
	dst = slices.Insert(dst, pos, id)

	changed := b.reposition(col, dst, nil)
	cols := map[Column][]string{col: dst}
	if col != from {
		changed = append(changed, b.reposition(from, src, nil)...)
		cols[from] = src
	}
	if len(changed) == 0 {
		return from, fromPos, nil
	}

	if err := b.store.SaveTasks(changed...); err != nil {
		return "", 0, fmt.Errorf("move task: %w", err)
	}

	b.commit(changed, cols)
	return from, fromPos, nil
}

// RemoveTask deletes a task and returns it as it was, position included.
func (b *Board) RemoveTask(id string) (Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	ids := slices.DeleteFunc(slices.Clone(b.columns[t.Column]), func(s string) bool { return s == id })
	changed := b.reposition(t.Column, ids, nil)
	if err := b.store.DeleteTask(id, changed...); err != nil {
		return Task{}, fmt.Errorf("remove task: %w", err)
	}

	delete(b.tasks, id)
	b.commit(changed, map[Column][]string{t.Column: ids})
	return t, nil
}

// reposition returns the tasks of ids whose column or position differ from
// their place in ids. pending is a task not yet on the board.
func (b *Board) reposition(col Column, ids []string, pending *Task) []Task {
	var changed []Task
	for i, id := range ids {
		if pending != nil && id == pending.ID {
			t := *pending
			t.Column = col
			t.Position = i
			changed = append(changed, t)
			continue
		}
		t := b.tasks[id]
		if t.Column != col || t.Position != i {
			t.Column = col
			t.Position = i
			changed = append(changed, t)
		}
	}
	return changed
}

func (b *Board) commit(changed []Task, cols map[Column][]string) {
	for _, t := range changed {
		b.tasks[t.ID] = t
	}
	for col, ids := range cols {
		b.columns[col] = ids
	}
}

// Goals

// Goals returns all goals in creation order.
func (b *Board) Goals() []Goal {
	return slices.Clone(b.goals)
}

// Goal returns the goal with the given ID.
func (b *Board) Goal(id string) (Goal, bool) {
	i := slices.IndexFunc(b.goals, func(g Goal) bool { return g.ID == id })
	if i < 0 {
		return Goal{}, false
	}
	return b.goals[i], true
}

// AddGoal creates a goal with zero progress.
func (b *Board) AddGoal(title string) (Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Goal{}, ErrEmptyTitle
	}

	g := Goal{
		ID:        b.newID(),
		Title:     title,
		CreatedAt: b.now(),
	}
	if err := b.store.SaveGoal(g); err != nil {
		return Goal{}, fmt.Errorf("add goal: %w", err)
	}

	b.goals = insertOrdered(b.goals, g, goalKey)
	return g, nil
}

// InsertGoal restores a previously removed goal.
func (b *Board) InsertGoal(g Goal) error {
	if _, ok := b.Goal(g.ID); ok {
		return fmt.Errorf("insert goal %s: %w", g.ID, ErrExists)
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.Progress < 0 || g.Progress > 100 {
		return ErrInvalidProgress
	}
	if err := b.store.SaveGoal(g); err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}

	b.goals = insertOrdered(b.goals, g, goalKey)
	return nil
}

// SetGoalProgress updates a goal's progress and returns the previous value.
func (b *Board) SetGoalProgress(id string, progress int) (int, error) {
	i := slices.IndexFunc(b.goals, func(g Goal) bool { return g.ID == id })
	if i < 0 {
		return 0, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if progress < 0 || progress > 100 {
		return 0, ErrInvalidProgress
	}

	g := b.goals[i]
	old := g.Progress
	g.Progress = progress
	if err := b.store.SaveGoal(g); err != nil {
		return 0, fmt.Errorf("set goal progress: %w", err)
	}

	b.goals[i] = g
	return old, nil
}

// RemoveGoal deletes a goal and returns it.
func (b *Board) RemoveGoal(id string) (Goal, error) {
	i := slices.IndexFunc(b.goals, func(g Goal) bool { return g.ID == id })
	if i < 0 {
		return Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err := b.store.DeleteGoal(id); err != nil {
		return Goal{}, fmt.Errorf("remove goal: %w", err)
	}

	g := b.goals[i]
	b.goals = slices.Delete(b.goals, i, i+1)
	return g, nil
}

// Habits

// Habits returns all habits in creation order.
func (b *Board) Habits() []Habit {
	out := make([]Habit, len(b.habits))
	for i, h := range b.habits {
		out[i] = h.clone()
	}
	return out
}

// Habit returns the habit with the given ID.
func (b *Board) Habit(id string) (Habit, bool) {
	i := slices.IndexFunc(b.habits, func(h Habit) bool { return h.ID == id })
	if i < 0 {
		return Habit{}, false
	}
	return b.habits[i].clone(), true
}

// AddHabit creates a habit with no completed days.
func (b *Board) AddHabit(name string) (Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Habit{}, ErrEmptyTitle
	}

	h := Habit{
		ID:        b.newID(),
		Name:      name,
		Done:      map[string]bool{},
		CreatedAt: b.now(),
	}
	if err := b.store.SaveHabit(h); err != nil {
		return Habit{}, fmt.Errorf("add habit: %w", err)
	}

	b.habits = insertOrdered(b.habits, h, habitKey)
	return h.clone(), nil
}

// InsertHabit restores a previously removed habit.
func (b *Board) InsertHabit(h Habit) error {
	if _, ok := b.Habit(h.ID); ok {
		return fmt.Errorf("insert habit %s: %w", h.ID, ErrExists)
	}
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyTitle
	}
	h = h.clone()
	if h.Done == nil {
		h.Done = map[string]bool{}
	}
	if err := b.store.SaveHabit(h); err != nil {
		return fmt.Errorf("insert habit: %w", err)
	}

	b.habits = insertOrdered(b.habits, h, habitKey)
	return nil
}

// RemoveHabit deletes a habit and returns it.
func (b *Board) RemoveHabit(id string) (Habit, error) {
	i := slices.IndexFunc(b.habits, func(h Habit) bool { return h.ID == id })
	if i < 0 {
		return Habit{}, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	if err := b.store.DeleteHabit(id); err != nil {
		return Habit{}, fmt.Errorf("remove habit: %w", err)
	}

	h := b.habits[i]
	b.habits = slices.Delete(b.habits, i, i+1)
	return h, nil
}

// SetHabitDone marks or unmarks a habit for day and returns the previous
// state.
func (b *Board) SetHabitDone(id, day string, done bool) (bool, error) {
	i := slices.IndexFunc(b.habits, func(h Habit) bool { return h.ID == id })
	if i < 0 {
		return false, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	day, err := ParseDay(day)
	if err != nil {
		return false, err
	}

	h := b.habits[i].clone()
	prev := h.Done[day]
	if prev == done {
		return prev, nil
	}
	if done {
		if h.Done == nil {
			h.Done = map[string]bool{}
		}
		h.Done[day] = true
	} else {
		delete(h.Done, day)
	}
	if err := b.store.SaveHabit(h); err != nil {
		return false, fmt.Errorf("set habit done: %w", err)
	}

	b.habits[i] = h
	return prev, nil
}

func goalKey(g Goal) (time.Time, string)   { return g.CreatedAt, g.ID }
func habitKey(h Habit) (time.Time, string) { return h.CreatedAt, h.ID }

// insertOrdered inserts v into s keeping s sorted by key.
func insertOrdered[T any](s []T, v T, key func(T) (time.Time, string)) []T {
	vt, vid := key(v)
	i := slices.IndexFunc(s, func(x T) bool {
		xt, xid := key(x)
		return cmp.Or(xt.Compare(vt), cmp.Compare(xid, vid)) > 0
	})
	if i < 0 {
		return append(s, v)
	}
	return slices.Insert(s, i, v)
}
