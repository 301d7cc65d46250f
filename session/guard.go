package session

import (
	"errors"
	"io"
	"os"
)

// Guard removes a partially written destination file. Arm it right after
// creating the file and defer Run; call Defuse only once the file has been
// written and closed successfully. Deferred calls also run while a panic
// unwinds, so a panicking transfer leaves no file either.
type Guard struct {
	path    string
	file    io.Closer
	closed  bool
	defused bool
}

// NewGuard arms a guard for path. f, when not nil, is closed before the
// file is removed.
func NewGuard(path string, f io.Closer) *Guard {
	return &Guard{path: path, file: f}
}

// Close closes the guarded file once.
func (g *Guard) Close() error {
	if g.closed || g.file == nil {
		return nil
	}
	g.closed = true
	return g.file.Close()
}

// Defuse keeps the file.
func (g *Guard) Defuse() {
	g.defused = true
}

// Run closes the file and, unless defused, removes it.
func (g *Guard) Run() error {
	cerr := g.Close()
	if g.defused {
		return cerr
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
