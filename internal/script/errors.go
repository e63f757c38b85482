package script

import (
	"errors"
	"fmt"
)

// ErrClosed indicates the state has been closed.
var ErrClosed = errors.New("script state closed")

// Error reports a failed script run.
type Error struct {
	// Script is the script name or path.
	Script string
	// Err is the Go error raised by a board or history call, or the Lua
	// error when the failure originated in Lua.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
