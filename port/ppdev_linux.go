//go:build linux

package port

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ppdev ioctl requests from <linux/ppdev.h>.
const (
	ppSetMode  = 0x40047080 // _IOW('p', 0x80, int)
	ppRStatus  = 0x80017081 // _IOR('p', 0x81, unsigned char)
	ppRControl = 0x80017083 // _IOR('p', 0x83, unsigned char)
	ppWControl = 0x40017084 // _IOW('p', 0x84, unsigned char)
	ppRData    = 0x80017085 // _IOR('p', 0x85, unsigned char)
	ppWData    = 0x40017086 // _IOW('p', 0x86, unsigned char)
	ppClaim    = 0x0000708B // _IO('p', 0x8b)
	ppRelease  = 0x0000708C // _IO('p', 0x8c)
)

// IEEE 1284 modes from <linux/parport.h>.
const (
	modeCompat = 0x0000
	modeEPP    = 0x0040
	modeAddr   = 0x2000
)

// PPDev drives a parallel port through the Linux ppdev character device.
type PPDev struct {
	f    *os.File
	mode int
	err  error
}

// OpenPPDev opens and claims a ppdev device such as /dev/parport0.
func OpenPPDev(path string) (*PPDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			err = fmt.Errorf("open: %w", pe.Err)
		}
		return nil, &InitError{Port: path, Err: err}
	}

	p := &PPDev{f: f, mode: -1}
	if err := p.ioctl(ppClaim, 0); err != nil {
		_ = f.Close()
		return nil, &InitError{Port: path, Err: fmt.Errorf("claim: %w", err)}
	}
	if err := p.setMode(modeCompat); err != nil {
		_ = p.ioctl(ppRelease, 0)
		_ = f.Close()
		return nil, &InitError{Port: path, Err: fmt.Errorf("set compatibility mode: %w", err)}
	}
	return p, nil
}

func (p *PPDev) ioctl(req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, p.f.Fd(), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func (p *PPDev) setMode(mode int) error {
	if p.mode == mode {
		return nil
	}
	m := int32(mode)
	if err := p.ioctl(ppSetMode, uintptr(unsafe.Pointer(&m))); err != nil {
		return err
	}
	p.mode = mode
	return nil
}

func (p *PPDev) fail(op string, err error) {
	if p.err == nil && err != nil {
		p.err = fmt.Errorf("ppdev %s: %w", op, err)
	}
}

// ReadReg implements Port.
func (p *PPDev) ReadReg(r Register) byte {
	var v byte = 0xFF
	switch r {
	case Data:
		p.fail("read data", p.ioctl(ppRData, uintptr(unsafe.Pointer(&v))))
	case Status:
		p.fail("read status", p.ioctl(ppRStatus, uintptr(unsafe.Pointer(&v))))
	case Control:
		p.fail("read control", p.ioctl(ppRControl, uintptr(unsafe.Pointer(&v))))
	case EPPAddress, EPPData:
		mode := modeEPP
		if r == EPPAddress {
			mode |= modeAddr
		}
		if err := p.setMode(mode); err != nil {
			p.fail("set epp mode", err)
			return v
		}
		buf := []byte{0xFF}
		if _, err := unix.Read(int(p.f.Fd()), buf); err != nil {
			p.fail("epp read", err)
		}
		v = buf[0]
	}
	return v
}

// WriteReg implements Port.
func (p *PPDev) WriteReg(r Register, v byte) {
	switch r {
	case Data:
		p.fail("write data", p.ioctl(ppWData, uintptr(unsafe.Pointer(&v))))
	case Control:
		p.fail("write control", p.ioctl(ppWControl, uintptr(unsafe.Pointer(&v))))
	case EPPAddress, EPPData:
		mode := modeEPP
		if r == EPPAddress {
			mode |= modeAddr
		}
		if err := p.setMode(mode); err != nil {
			p.fail("set epp mode", err)
			return
		}
		if _, err := unix.Write(int(p.f.Fd()), []byte{v}); err != nil {
			p.fail("epp write", err)
		}
	}
}

// Err returns the first backend failure.
func (p *PPDev) Err() error {
	return p.err
}

// Close releases and closes the device.
func (p *PPDev) Close() error {
	_ = p.ioctl(ppRelease, 0)
	return p.f.Close()
}
