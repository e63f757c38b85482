package history

import (
	"slices"
	"time"
)

// DefaultCapacity is the undo stack bound used when none is configured.
const DefaultCapacity = 50

// entry wraps an action with metadata.
type entry struct {
	action    Action
	timestamp time.Time
}

// Info describes a recorded action without exposing the stacks.
type Info struct {
	Kind        Kind      `yaml:"kind"`
	Description string    `yaml:"description"`
	Timestamp   time.Time `yaml:"timestamp"`
	Action      Action    `yaml:"action,omitempty"`
}

// State is a snapshot of the derived history queries.
type State struct {
	CanUndo   bool
	CanRedo   bool
	UndoCount int
	RedoCount int
}

// Manager manages the undo and redo stacks for a session.
type Manager struct {
	undoStack []*entry
	redoStack []*entry

	// Grouping state
	grouping     bool
	groupName    string
	groupActions []Action

	// Configuration
	capacity  int
	redoLimit int
	now       func() time.Time

	observers   []observer
	nextObserve uint64
}

type observer struct {
	id uint64
	fn func(State)
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity sets the maximum number of undo entries.
// Values <= 0 select DefaultCapacity.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithRedoLimit bounds the redo stack. Zero leaves it unbounded.
func WithRedoLimit(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.redoLimit = n
		}
	}
}

// WithClock sets the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates an empty history manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute applies the action's forward effect and records it.
// Nothing is recorded if Do fails.
func (m *Manager) Execute(a Executable) error {
	if err := a.Do(); err != nil {
		return err
	}
	m.Push(a)
	return nil
}

// Push records an action whose forward effect has already been applied.
// The redo stack is cleared; the oldest undo entry is evicted when the
// stack would exceed capacity.
func (m *Manager) Push(a Action) {
	if a == nil {
		return
	}

	if m.grouping {
		m.groupActions = append(m.groupActions, a)
		m.redoStack = nil
		m.notify()
		return
	}

	m.pushEntry(a)
	m.notify()
}

func (m *Manager) pushEntry(a Action) {
	m.undoStack = append(m.undoStack, &entry{
		action:    a,
		timestamp: m.now(),
	})

	m.redoStack = nil

	if len(m.undoStack) > m.capacity {
		excess := len(m.undoStack) - m.capacity
		clear(m.undoStack[:excess])
		m.undoStack = m.undoStack[excess:]
	}
}

// Undo reverts the most recently recorded action and moves it to the redo
// stack. It returns nil, nil when there is nothing to undo. If the action's
// Undo fails, the action stays on the undo stack and an *ActionError is
// returned.
//
// An open group is sealed first, so the group undoes as one unit.
func (m *Manager) Undo() (Action, error) {
	m.sealGroup()

	n := len(m.undoStack)
	if n == 0 {
		return nil, nil
	}

	e := m.undoStack[n-1]
	if err := e.action.Undo(); err != nil {
		return nil, &ActionError{Op: "undo", Action: e.action, Err: err}
	}

	m.undoStack[n-1] = nil
	m.undoStack = m.undoStack[:n-1]
	m.redoStack = append(m.redoStack, e)

	if m.redoLimit > 0 && len(m.redoStack) > m.redoLimit {
		excess := len(m.redoStack) - m.redoLimit
		clear(m.redoStack[:excess])
		m.redoStack = m.redoStack[excess:]
	}

	m.notify()
	return e.action, nil
}

// Redo reapplies the most recently undone action and moves it back to the
// undo stack. It returns nil, nil when there is nothing to redo. If the
// action's Redo fails, the action stays on the redo stack.
func (m *Manager) Redo() (Action, error) {
	m.sealGroup()

	n := len(m.redoStack)
	if n == 0 {
		return nil, nil
	}

	e := m.redoStack[n-1]
	if err := e.action.Redo(); err != nil {
		return nil, &ActionError{Op: "redo", Action: e.action, Err: err}
	}

	m.redoStack[n-1] = nil
	m.redoStack = m.redoStack[:n-1]
	m.undoStack = append(m.undoStack, e)

	if len(m.undoStack) > m.capacity {
		excess := len(m.undoStack) - m.capacity
		clear(m.undoStack[:excess])
		m.undoStack = m.undoStack[excess:]
	}

	m.notify()
	return e.action, nil
}

// CanUndo returns true if undo is available.
func (m *Manager) CanUndo() bool {
	return len(m.undoStack) > 0 || (m.grouping && len(m.groupActions) > 0)
}

// CanRedo returns true if redo is available.
func (m *Manager) CanRedo() bool {
	return len(m.redoStack) > 0
}

// UndoCount returns the number of undo entries. An open, non-empty group
// counts as one entry.
func (m *Manager) UndoCount() int {
	n := len(m.undoStack)
	if m.grouping && len(m.groupActions) > 0 {
		n++
	}
	return n
}

// RedoCount returns the number of redo entries.
func (m *Manager) RedoCount() int {
	return len(m.redoStack)
}

// State returns the derived queries in one value.
func (m *Manager) State() State {
	return State{
		CanUndo:   m.CanUndo(),
		CanRedo:   m.CanRedo(),
		UndoCount: m.UndoCount(),
		RedoCount: m.RedoCount(),
	}
}

// Clear removes all undo/redo history, including an open group.
func (m *Manager) Clear() {
	clear(m.undoStack)
	clear(m.redoStack)
	m.undoStack = nil
	m.redoStack = nil
	m.grouping = false
	m.groupName = ""
	m.groupActions = nil
	m.notify()
}

// UndoInfo returns the undo stack, oldest first.
func (m *Manager) UndoInfo() []Info {
	return infos(m.undoStack)
}

// RedoInfo returns the redo stack, oldest first.
func (m *Manager) RedoInfo() []Info {
	return infos(m.redoStack)
}

func infos(stack []*entry) []Info {
	result := make([]Info, len(stack))
	for i, e := range stack {
		result[i] = e.info()
	}
	return result
}

func (e *entry) info() Info {
	return Info{
		Kind:        e.action.Kind(),
		Description: e.action.Description(),
		Timestamp:   e.timestamp,
		Action:      e.action,
	}
}

// PeekUndo returns the next undo entry without removing it.
func (m *Manager) PeekUndo() (Info, bool) {
	if len(m.undoStack) == 0 {
		return Info{}, false
	}
	return m.undoStack[len(m.undoStack)-1].info(), true
}

// PeekRedo returns the next redo entry without removing it.
func (m *Manager) PeekRedo() (Info, bool) {
	if len(m.redoStack) == 0 {
		return Info{}, false
	}
	return m.redoStack[len(m.redoStack)-1].info(), true
}

// SetCapacity changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
func (m *Manager) SetCapacity(n int) {
	if n <= 0 {
		n = DefaultCapacity
	}
	m.capacity = n

	if len(m.undoStack) > n {
		excess := len(m.undoStack) - n
		clear(m.undoStack[:excess])
		m.undoStack = m.undoStack[excess:]
		m.notify()
	}
}

// Capacity returns the maximum number of undo entries.
func (m *Manager) Capacity() int {
	return m.capacity
}

// SetRedoLimit bounds the redo stack; zero removes the bound.
func (m *Manager) SetRedoLimit(n int) {
	if n < 0 {
		n = 0
	}
	m.redoLimit = n

	if n > 0 && len(m.redoStack) > n {
		excess := len(m.redoStack) - n
		clear(m.redoStack[:excess])
		m.redoStack = m.redoStack[excess:]
		m.notify()
	}
}

// RedoLimit returns the redo bound, zero meaning unbounded.
func (m *Manager) RedoLimit() int {
	return m.redoLimit
}

// OnChange registers fn to be called synchronously with the new State after
// every mutating call. Observers run in registration order. The returned
// function removes the observer.
func (m *Manager) OnChange(fn func(State)) (remove func()) {
	id := m.nextObserve
	m.nextObserve++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	return func() {
		m.observers = slices.DeleteFunc(m.observers, func(o observer) bool {
			return o.id == id
		})
	}
}

func (m *Manager) notify() {
	if len(m.observers) == 0 {
		return
	}
	s := m.State()
	for _, o := range slices.Clone(m.observers) {
		o.fn(s)
	}
}
