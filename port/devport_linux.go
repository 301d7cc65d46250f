//go:build linux

package port

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DevPort accesses a parallel port in raw I/O space through /dev/port.
// It needs root (or CAP_SYS_RAWIO) but works with any ISA-compatible port,
// including EPP address/data registers.
type DevPort struct {
	fd   int
	base uint16
	err  error
}

// OpenDevPort opens /dev/port for the port at base (0x378, 0x278, 0x3BC, ...).
func OpenDevPort(base uint16) (*DevPort, error) {
	fd, err := unix.Open("/dev/port", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &InitError{Port: fmt.Sprintf("0x%X", base), Err: fmt.Errorf("open /dev/port: %w", err)}
	}
	return &DevPort{fd: fd, base: base}, nil
}

// ReadReg implements Port.
func (d *DevPort) ReadReg(r Register) byte {
	buf := []byte{0xFF}
	if _, err := unix.Pread(d.fd, buf, int64(d.base+r.Offset())); err != nil && d.err == nil {
		d.err = fmt.Errorf("read %s at 0x%X: %w", r, d.base+r.Offset(), err)
	}
	return buf[0]
}

// WriteReg implements Port.
func (d *DevPort) WriteReg(r Register, v byte) {
	if _, err := unix.Pwrite(d.fd, []byte{v}, int64(d.base+r.Offset())); err != nil && d.err == nil {
		d.err = fmt.Errorf("write %s at 0x%X: %w", r, d.base+r.Offset(), err)
	}
}

// Err returns the first backend failure.
func (d *DevPort) Err() error {
	return d.err
}

// Close closes /dev/port.
func (d *DevPort) Close() error {
	return unix.Close(d.fd)
}
