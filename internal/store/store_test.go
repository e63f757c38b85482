package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/daybook/internal/board"
)

var created = time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)

// backends returns a fresh instance of each Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreTasks(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := board.Task{ID: "a", Title: "Write report", Column: board.ColumnTodo, Position: 0, CreatedAt: created}
			b := board.Task{ID: "b", Title: "Review", Column: board.ColumnTodo, Position: 1, CreatedAt: created}
			require.NoError(t, s.SaveTasks(a, b))

			b.Title = "Review PR"
			b.Column = board.ColumnDoing
			b.Position = 0
			require.NoError(t, s.SaveTasks(b))

			snap, err := s.Load()
			require.NoError(t, err)
			require.Len(t, snap.Tasks, 2)

			byID := map[string]board.Task{}
			for _, tk := range snap.Tasks {
				byID[tk.ID] = tk
			}
			assert.Equal(t, "Review PR", byID["b"].Title)
			assert.Equal(t, board.ColumnDoing, byID["b"].Column)
			assert.True(t, byID["a"].CreatedAt.Equal(created))

			require.NoError(t, s.DeleteTask("a"))
			snap, err = s.Load()
			require.NoError(t, err)
			require.Len(t, snap.Tasks, 1)
			assert.Equal(t, "b", snap.Tasks[0].ID)
		})
	}
}

func TestStoreGoalsAndHabits(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := board.Goal{ID: "g1", Title: "Run a marathon", Progress: 40, CreatedAt: created}
			require.NoError(t, s.SaveGoal(g))

			h := board.Habit{
				ID:        "h1",
				Name:      "Stretch",
				Done:      map[string]bool{"2026-10-02": true, "2026-10-01": true},
				CreatedAt: created,
			}
			require.NoError(t, s.SaveHabit(h))

			snap, err := s.Load()
			require.NoError(t, err)
			require.Len(t, snap.Goals, 1)
			assert.Equal(t, 40, snap.Goals[0].Progress)
			require.Len(t, snap.Habits, 1)
			assert.Equal(t, []string{"2026-10-01", "2026-10-02"}, snap.Habits[0].Days())

			require.NoError(t, s.DeleteGoal("g1"))
			require.NoError(t, s.DeleteHabit("h1"))
			snap, err = s.Load()
			require.NoError(t, err)
			assert.Empty(t, snap.Goals)
			assert.Empty(t, snap.Habits)
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daybook.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTasks(board.Task{ID: "a", Title: "Persist me", Column: board.ColumnDone, CreatedAt: created}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Load()
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Persist me", snap.Tasks[0].Title)
	assert.Equal(t, path, s.Path())
}

func TestMemoryFailNext(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk full")
	m.FailNext(boom)

	err := m.SaveGoal(board.Goal{ID: "g", Title: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Writes())

	require.NoError(t, m.SaveGoal(board.Goal{ID: "g", Title: "x"}))
	assert.Equal(t, 1, m.Writes())
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Load()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.SaveTasks(board.Task{ID: "a"}), ErrClosed)
}
