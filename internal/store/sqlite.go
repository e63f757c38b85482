package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/daybook/internal/board"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: the board is the only writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Path returns the database path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		col TEXT NOT NULL,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_col ON tasks(col, position);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		done_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads every task, goal and habit.
func (s *SQLite) Load() (board.Snapshot, error) {
	var snap board.Snapshot

	rows, err := s.db.Query(`SELECT id, title, col, position, created_at FROM tasks ORDER BY col, position`)
	if err != nil {
		return snap, fmt.Errorf("query tasks: %w", err)
	}
	for rows.Next() {
		var t board.Task
		var col, created string
		if err := rows.Scan(&t.ID, &t.Title, &col, &t.Position, &created); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan task: %w", err)
		}
		t.Column = board.Column(col)
		if t.CreatedAt, err = parseTime(created); err != nil {
			rows.Close()
			return snap, fmt.Errorf("task %s: %w", t.ID, err)
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("query tasks: %w", err)
	}

	rows, err = s.db.Query(`SELECT id, title, progress, created_at FROM goals ORDER BY created_at, id`)
	if err != nil {
		return snap, fmt.Errorf("query goals: %w", err)
	}
	for rows.Next() {
		var g board.Goal
		var created string
		if err := rows.Scan(&g.ID, &g.Title, &g.Progress, &created); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan goal: %w", err)
		}
		if g.CreatedAt, err = parseTime(created); err != nil {
			rows.Close()
			return snap, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		snap.Goals = append(snap.Goals, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("query goals: %w", err)
	}

	rows, err = s.db.Query(`SELECT id, name, done_json, created_at FROM habits ORDER BY created_at, id`)
	if err != nil {
		return snap, fmt.Errorf("query habits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h board.Habit
		var doneJSON, created string
		if err := rows.Scan(&h.ID, &h.Name, &doneJSON, &created); err != nil {
			return snap, fmt.Errorf("scan habit: %w", err)
		}
		var days []string
		if err := json.Unmarshal([]byte(doneJSON), &days); err != nil {
			return snap, fmt.Errorf("habit %s: decode days: %w", h.ID, err)
		}
		h.Done = make(map[string]bool, len(days))
		for _, d := range days {
			h.Done[d] = true
		}
		if h.CreatedAt, err = parseTime(created); err != nil {
			return snap, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		snap.Habits = append(snap.Habits, h)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("query habits: %w", err)
	}

	return snap, nil
}

const upsertTask = `
	INSERT INTO tasks (id, title, col, position, created_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET title = excluded.title, col = excluded.col, position = excluded.position`

// SaveTasks upserts tasks in one transaction.
func (s *SQLite) SaveTasks(tasks ...board.Task) error {
	return s.inTx(func(tx *sql.Tx) error {
		return saveTasks(tx, tasks)
	})
}

func saveTasks(tx *sql.Tx, tasks []board.Task) error {
	for _, t := range tasks {
		if _, err := tx.Exec(upsertTask, t.ID, t.Title, string(t.Column), t.Position, formatTime(t.CreatedAt)); err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return nil
}

// DeleteTask removes a task and saves the reordered tasks in one transaction.
func (s *SQLite) DeleteTask(id string, reordered ...board.Task) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		return saveTasks(tx, reordered)
	})
}

// SaveGoal upserts a goal.
func (s *SQLite) SaveGoal(g board.Goal) error {
	_, err := s.db.Exec(`
		INSERT INTO goals (id, title, progress, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, progress = excluded.progress`,
		g.ID, g.Title, g.Progress, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("save goal %s: %w", g.ID, err)
	}
	return nil
}

// DeleteGoal removes a goal.
func (s *SQLite) DeleteGoal(id string) error {
	if _, err := s.db.Exec(`DELETE FROM goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return nil
}

// SaveHabit upserts a habit.
func (s *SQLite) SaveHabit(h board.Habit) error {
	days := h.Days()
	if days == nil {
		days = []string{}
	}
	doneJSON, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode habit days: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO habits (id, name, done_json, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, done_json = excluded.done_json`,
		h.ID, h.Name, string(doneJSON), formatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("save habit %s: %w", h.ID, err)
	}
	return nil
}

// DeleteHabit removes a habit.
func (s *SQLite) DeleteHabit(id string) error {
	if _, err := s.db.Exec(`DELETE FROM habits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete habit %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
