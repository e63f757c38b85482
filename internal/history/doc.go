// Package history provides undo/redo bookkeeping for reversible board edits.
//
// The history system uses the Command pattern: every reversible edit is an
// Action that knows how to undo and redo itself. The Manager only records
// actions and moves them between two stacks. Key concepts:
//
// # Actions
//
// An Action carries a Kind, a user-facing Description and the Undo/Redo
// pair. Undo and Redo must be inverses of each other. Actions that also know
// how to apply their forward effect implement Executable.
//
// # Stacks
//
// The Manager keeps an undo stack bounded by its capacity (default 50) and a
// redo stack that is unbounded unless a redo limit is configured:
//
//	h := history.New()
//
//	// Apply the forward effect, then record it
//	h.Execute(action)
//
//	// Undo/redo
//	undone, err := h.Undo()
//	redone, err := h.Redo()
//
// Push always clears the redo stack. Undo and Redo return a nil Action when
// there is nothing to do. An action whose Undo or Redo fails stays where it
// was so the caller may retry.
//
// # Grouping
//
// Multiple actions can be recorded as a single undo unit:
//
//	h.BeginGroup("Import tasks")
//	// ... multiple edits ...
//	h.EndGroup()
//
// # Concurrency
//
// A Manager is not safe for concurrent use. It assumes one writer, such as a
// UI event loop; callers on several goroutines must serialize access.
package history
