package port

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common ISA parallel port base addresses.
const (
	LPT1 = 0x378
	LPT2 = 0x278
	LPT3 = 0x3BC
)

// ParseBase parses a port base address such as "0x378", "378" or "lpt1".
func ParseBase(s string) (uint16, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "lpt1":
		return LPT1, nil
	case "lpt2":
		return LPT2, nil
	case "lpt3":
		return LPT3, nil
	}
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port address %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid port address 0")
	}
	return uint16(v), nil
}

// InitError is returned when a parallel port cannot be opened or claimed.
type InitError struct {
	// Port identifies the port (path or base address)
	Port string

	// Err is the underlying cause
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("port %s initialization failed: %v", e.Port, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Open opens a hardware port. A path ("/dev/parport0") selects the ppdev
// backend, anything else is parsed as an I/O base address for /dev/port.
// Failures are returned as *InitError.
func Open(spec string) (Port, error) {
	var (
		p   Port
		err error
	)
	if strings.HasPrefix(spec, "/") {
		p, err = openPPDev(spec)
	} else {
		var base uint16
		if base, err = ParseBase(spec); err == nil {
			p, err = openDevPort(base)
		}
	}
	if err != nil {
		var ie *InitError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &InitError{Port: spec, Err: err}
	}
	return p, nil
}
