package history

import "slices"

// BeginGroup starts an action group.
// Actions pushed while grouping are combined into a single undo unit.
// Nested calls are ignored.
func (m *Manager) BeginGroup(name string) {
	if m.grouping {
		return
	}

	m.grouping = true
	m.groupName = name
	m.groupActions = nil
}

// EndGroup finishes an action group.
// All actions since BeginGroup are combined into a Compound.
func (m *Manager) EndGroup() {
	if !m.grouping {
		return
	}
	m.sealGroup()
	m.notify()
}

// sealGroup records the open group, if any, as one undo entry.
func (m *Manager) sealGroup() {
	if !m.grouping {
		return
	}

	actions := m.groupActions
	name := m.groupName
	m.grouping = false
	m.groupName = ""
	m.groupActions = nil

	switch len(actions) {
	case 0:
		return
	case 1:
		if name == "" {
			m.pushEntry(actions[0])
			return
		}
	}
	m.pushEntry(NewCompound(name, actions...))
}

// CancelGroup discards an open group without recording it.
// Actions already applied still affect application state.
func (m *Manager) CancelGroup() {
	if !m.grouping {
		return
	}
	m.grouping = false
	m.groupName = ""
	m.groupActions = nil
	m.notify()
}

// IsGrouping returns true if currently in an action group.
func (m *Manager) IsGrouping() bool {
	return m.grouping
}

// Transaction runs fn within a grouped undo context.
// If fn returns an error, the group is cancelled.
func (m *Manager) Transaction(name string, fn func() error) error {
	m.BeginGroup(name)

	if err := fn(); err != nil {
		m.CancelGroup()
		return err
	}

	m.EndGroup()
	return nil
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int

	undo      []*entry
	redo      []*entry
	grouping  bool
	groupName string
	group     []Action
}

// Checkpoint returns a checkpoint at the current history position.
func (m *Manager) Checkpoint() Checkpoint {
	return Checkpoint{
		undoDepth: m.UndoCount(),
		undo:      slices.Clone(m.undoStack),
		redo:      slices.Clone(m.redoStack),
		grouping:  m.grouping,
		groupName: m.groupName,
		group:     slices.Clone(m.groupActions),
	}
}

// Restore resets both stacks and the open group to their contents at cp.
// No action is run; the caller must already have returned application
// state to where it was at cp.
func (m *Manager) Restore(cp Checkpoint) {
	m.undoStack = slices.Clone(cp.undo)
	m.redoStack = slices.Clone(cp.redo)
	m.grouping = cp.grouping
	m.groupName = cp.groupName
	m.groupActions = slices.Clone(cp.group)
	m.notify()
}

// UndoTo undoes all actions recorded since the checkpoint and returns them
// in the order they were undone. It stops at the first failure.
func (m *Manager) UndoTo(cp Checkpoint) ([]Action, error) {
	var undone []Action
	for m.UndoCount() > cp.undoDepth {
		a, err := m.Undo()
		if err != nil {
			return undone, err
		}
		if a == nil {
			break
		}
		undone = append(undone, a)
	}
	return undone, nil
}
