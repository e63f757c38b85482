package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/dshills/daybook/internal/board"
)

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex

	tasks  map[string]board.Task
	goals  map[string]board.Goal
	habits map[string]board.Habit

	failures []error
	writes   int
	closed   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks:  make(map[string]board.Task),
		goals:  make(map[string]board.Goal),
		habits: make(map[string]board.Habit),
	}
}

// FailNext makes the next write return err. Calls queue up.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// beginWrite must be called with the lock held.
func (m *Memory) beginWrite() error {
	if m.closed {
		return ErrClosed
	}
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return err
	}
	m.writes++
	return nil
}

// Load returns a copy of everything stored.
func (m *Memory) Load() (board.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return board.Snapshot{}, ErrClosed
	}

	var snap board.Snapshot
	for _, id := range slices.Sorted(maps.Keys(m.tasks)) {
		snap.Tasks = append(snap.Tasks, m.tasks[id])
	}
	for _, id := range slices.Sorted(maps.Keys(m.goals)) {
		snap.Goals = append(snap.Goals, m.goals[id])
	}
	for _, id := range slices.Sorted(maps.Keys(m.habits)) {
		h := m.habits[id]
		h.Done = maps.Clone(h.Done)
		snap.Habits = append(snap.Habits, h)
	}
	return snap, nil
}

// SaveTasks inserts or updates tasks.
func (m *Memory) SaveTasks(tasks ...board.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return nil
}

// DeleteTask removes a task and saves the reordered tasks.
func (m *Memory) DeleteTask(id string, reordered ...board.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	delete(m.tasks, id)
	for _, t := range reordered {
		m.tasks[t.ID] = t
	}
	return nil
}

// SaveGoal inserts or updates a goal.
func (m *Memory) SaveGoal(g board.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	m.goals[g.ID] = g
	return nil
}

// DeleteGoal removes a goal.
func (m *Memory) DeleteGoal(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	delete(m.goals, id)
	return nil
}

// SaveHabit inserts or updates a habit.
func (m *Memory) SaveHabit(h board.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	h.Done = maps.Clone(h.Done)
	m.habits[h.ID] = h
	return nil
}

// DeleteHabit removes a habit.
func (m *Memory) DeleteHabit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.beginWrite(); err != nil {
		return err
	}
	delete(m.habits, id)
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
