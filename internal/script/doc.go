// Package script runs Lua batch edits against a board.
//
// Scripts execute in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. Two modules are exposed as globals:
//
//	board.add_task(title [, column])      -> id
//	board.move_task(id, column [, pos])
//	board.rename_task(id, title)
//	board.delete_task(id)
//	board.tasks([column])                 -> { {id=, title=, column=, position=}, ... }
//	board.add_goal(title)                 -> id
//	board.set_goal_progress(id, percent)
//	board.add_habit(name)                 -> id
//	board.toggle_habit(id [, day])
//
//	history.undo()                        -> description or nil
//	history.redo()                        -> description or nil
//	history.can_undo()                    -> boolean
//	history.can_redo()                    -> boolean
//
// All edits made by one run are recorded as a single history entry. If the
// script fails, the board and history are put back as they were before the
// run, including any history.undo or history.redo calls it made. Moving a
// task to where it already is does not count as an edit.
package script
