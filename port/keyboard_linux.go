//go:build linux

package port

import (
	"fmt"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Keyboard polls a terminal for the abort keys (q, Q, Esc) without blocking.
// The terminal is switched to cbreak mode for the lifetime of the Keyboard so
// single key presses are delivered immediately.
type Keyboard struct {
	input   *os.File
	canAttr unix.Termios
	pressed bool
}

// NewKeyboard puts input (normally os.Stdin) into cbreak mode.
func NewKeyboard(input *os.File) (*Keyboard, error) {
	if input == nil {
		return nil, fmt.Errorf("keyboard requires an input file")
	}

	k := &Keyboard{input: input}
	if err := termios.Tcgetattr(input.Fd(), &k.canAttr); err != nil {
		return nil, fmt.Errorf("input is not a terminal: %w", err)
	}

	cbreak := k.canAttr
	termios.Cfmakecbreak(&cbreak)
	if err := termios.Tcsetattr(input.Fd(), termios.TCIFLUSH, &cbreak); err != nil {
		return nil, fmt.Errorf("set cbreak mode: %w", err)
	}
	return k, nil
}

// Pressed reports whether an abort key has been pressed. Once true it stays
// true. It never blocks.
func (k *Keyboard) Pressed() bool {
	if k.pressed {
		return true
	}

	fds := []unix.PollFd{{Fd: int32(k.input.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err != nil || n == 0 || fds[0].Revents&unix.POLLIN == 0 {
			return false
		}

		buf := make([]byte, 1)
		if _, err := unix.Read(int(k.input.Fd()), buf); err != nil {
			return false
		}
		switch buf[0] {
		case 'q', 'Q', 0x1B:
			k.pressed = true
			return true
		}
	}
}

// Close restores the terminal mode saved by NewKeyboard.
func (k *Keyboard) Close() error {
	return termios.Tcsetattr(k.input.Fd(), termios.TCIFLUSH, &k.canAttr)
}
