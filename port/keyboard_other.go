//go:build !linux

package port

import (
	"fmt"
	"os"
	"runtime"
)

// Keyboard is unavailable on this platform; cancellation falls back to
// interrupt signals.
type Keyboard struct{}

// NewKeyboard always fails on this platform.
func NewKeyboard(input *os.File) (*Keyboard, error) {
	return nil, fmt.Errorf("keyboard polling is not supported on %s", runtime.GOOS)
}

// Pressed implements the CancelFunc shape.
func (k *Keyboard) Pressed() bool {
	return false
}

// Close is a no-op.
func (k *Keyboard) Close() error {
	return nil
}
