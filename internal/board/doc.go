// Package board holds the productivity data a session edits: kanban tasks,
// goals and habits.
//
// A Board keeps its data in memory and writes every change through to a
// Store. A change is committed in memory only after the store accepted it,
// so a failed write leaves the board as it was.
//
// Board methods are the primitive edits. Reversible, user-level actions
// built on top of them live in package ops.
package board
