// Package store provides persistence backends for board data.
//
// SQLite is the default backend. Memory keeps everything in process and is
// used for tests and ephemeral sessions.
package store

import (
	"errors"

	"github.com/dshills/daybook/internal/board"
)

// ErrClosed indicates the store has been closed.
var ErrClosed = errors.New("store closed")

// Store is a board.Store that owns resources.
type Store interface {
	board.Store

	// Close releases the store's resources.
	Close() error
}
