package port

import "fmt"

// Register identifies one of the parallel port registers by its offset from
// the port base address.
type Register uint8

// Parallel port registers.
const (
	// Data is the 8-bit data latch (base+0)
	Data Register = iota

	// Status is the read-only status register (base+1)
	Status

	// Control is the control register (base+2)
	Control

	// EPPAddress issues an EPP address cycle (base+3)
	EPPAddress

	// EPPData issues an EPP data cycle (base+4)
	EPPData
)

// Offset returns the register offset from the port base address.
func (r Register) Offset() uint16 {
	return uint16(r)
}

func (r Register) String() string {
	switch r {
	case Data:
		return "data"
	case Status:
		return "status"
	case Control:
		return "control"
	case EPPAddress:
		return "epp-address"
	case EPPData:
		return "epp-data"
	default:
		return fmt.Sprintf("register(%d)", uint8(r))
	}
}

// Status register bits.
const (
	StatusError    = 0x08
	StatusSelect   = 0x10
	StatusPaperOut = 0x20
	StatusAck      = 0x40
	StatusBusy     = 0x80 // inverted by the port hardware: 1 means the BUSY line is low

	// StatusNibble masks the four input lines (ERROR, SELECT, PAPEROUT, ACK)
	// used for nibble-mode input.
	StatusNibble = 0x78
)

// Control register bits.
const (
	ControlStrobe    = 0x01
	ControlAutoFeed  = 0x02
	ControlInit      = 0x04 // not inverted: 0 pulls nInit low
	ControlSelectIn  = 0x08
	ControlIRQ       = 0x10
	ControlDirection = 0x20
)

// Port is a handle on a parallel port's registers.
//
// Implementations must not buffer, reorder or retry accesses. A Port is owned
// by exactly one transfer session at a time and is not safe for concurrent
// use.
type Port interface {
	// ReadReg returns the current value of register r.
	ReadReg(r Register) byte

	// WriteReg stores v in register r.
	WriteReg(r Register, v byte)
}

// Delay busy-waits by reading the status register n times. On ISA-era
// hardware a port read takes about a microsecond, which is what the copier
// timing loops were tuned against.
func Delay(p Port, n int) {
	for i := 0; i < n; i++ {
		_ = p.ReadReg(Status)
	}
}

// Nibble extracts the four input lines of a status value as a nibble.
func Nibble(status byte) byte {
	return (status & StatusNibble) >> 3
}

// CancelFunc reports whether the user asked to abort the running transfer.
// It must not block.
type CancelFunc func() bool

// NeverCancel is a CancelFunc that never requests cancellation.
func NeverCancel() bool {
	return false
}

// Errer is implemented by ports whose backend can fail. Register access stays
// total; the first backend failure is kept and reported here.
type Errer interface {
	Err() error
}

// Err returns the sticky backend error of p, if p records one.
func Err(p Port) error {
	if e, ok := p.(Errer); ok {
		return e.Err()
	}
	return nil
}
