package protocol

import (
	"fmt"

	"github.com/moffa90/go-copier/port"
)

// ByteLink moves single bytes to and from a copier. Each copier family has
// its own handshake underneath.
type ByteLink interface {
	// SendByte transfers one byte to the copier.
	SendByte(b byte) error

	// ReceiveByte transfers one byte from the copier.
	ReceiveByte() (byte, error)

	// Resync brings the link back to a known state after a failed exchange.
	Resync() error
}

// FFE is the Front Far East link used by the FIG and SMC copiers.
//
// A byte is sent by latching it on the data lines and toggling STROBE; the
// copier drops BUSY while it consumes the byte. A byte is received as two
// nibbles on the status lines, low nibble first, each acknowledged with a
// STROBE toggle.
type FFE struct {
	port   port.Port
	poll   PollBudget
	settle int
	ctl    byte
}

// NewFFE creates an FFE link on p and raises nInit.
func NewFFE(p port.Port, poll PollBudget, settle int) *FFE {
	f := &FFE{port: p, poll: poll, settle: settle, ctl: port.ControlInit}
	p.WriteReg(port.Control, f.ctl)
	return f
}

// WaitReady polls until the copier is not busy and returns the status read.
func (f *FFE) WaitReady(op string) (byte, error) {
	return f.poll.Wait(f.port, op, func(status byte) bool {
		return status&port.StatusBusy != 0
	})
}

func (f *FFE) toggle() {
	f.ctl ^= port.ControlStrobe
	f.port.WriteReg(port.Control, f.ctl)
}

// SendByte implements ByteLink.
func (f *FFE) SendByte(b byte) error {
	if _, err := f.WaitReady("ffe send"); err != nil {
		return err
	}
	f.port.WriteReg(port.Data, b)
	f.toggle()
	_, err := f.WaitReady("ffe send")
	return err
}

// ReceiveByte implements ByteLink.
func (f *FFE) ReceiveByte() (byte, error) {
	status, err := f.WaitReady("ffe receive")
	if err != nil {
		return 0, err
	}
	lo := port.Nibble(status)
	f.toggle()

	status, err = f.WaitReady("ffe receive")
	if err != nil {
		return 0, err
	}
	hi := port.Nibble(status)
	f.toggle()

	return hi<<4 | lo, nil
}

// Resync pulses nInit, which drops the copier back to waiting for a frame
// preamble.
func (f *FFE) Resync() error {
	f.port.WriteReg(port.Control, 0)
	port.Delay(f.port, f.settle)
	f.ctl = port.ControlInit
	f.port.WriteReg(port.Control, f.ctl)
	port.Delay(f.port, f.settle)

	if _, err := f.WaitReady("ffe resync"); err != nil {
		return &SyncTimeoutError{Operation: "ffe resync", Attempts: int(f.poll), Fatal: true, Err: err}
	}
	return nil
}

// SendCommand sends a command frame.
func (f *FFE) SendCommand(cmd byte, addr, length uint16) error {
	for _, b := range BuildFFECommand(cmd, addr, length) {
		if err := f.SendByte(b); err != nil {
			return fmt.Errorf("command 0x%02X: %w", cmd, err)
		}
	}
	return nil
}

// SendBlock writes data at addr in the currently selected page.
func (f *FFE) SendBlock(addr uint16, data []byte) error {
	if len(data) == 0 || len(data) > 0xFFFF {
		return fmt.Errorf("block length must be 1-65535, got %d", len(data))
	}
	if err := f.SendCommand(FFECmdWrite, addr, uint16(len(data))); err != nil {
		return err
	}
	for _, b := range data {
		if err := f.SendByte(b); err != nil {
			return err
		}
	}
	return f.SendByte(FFEChecksum(data))
}

// ReceiveBlock reads len(buf) bytes at addr in the currently selected page
// and verifies the block checksum.
func (f *FFE) ReceiveBlock(addr uint16, buf []byte) error {
	if len(buf) == 0 || len(buf) > 0xFFFF {
		return fmt.Errorf("block length must be 1-65535, got %d", len(buf))
	}
	if err := f.SendCommand(FFECmdRead, addr, uint16(len(buf))); err != nil {
		return err
	}
	for i := range buf {
		b, err := f.ReceiveByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}

	sum, err := f.ReceiveByte()
	if err != nil {
		return err
	}
	if want := FFEChecksum(buf); sum != want {
		return &ChecksumError{Operation: fmt.Sprintf("read 0x%04X", addr), Expected: want, Actual: sum}
	}
	return nil
}

// SendCommand0 writes a single register byte.
func (f *FFE) SendCommand0(addr uint16, v byte) error {
	return f.SendBlock(addr, []byte{v})
}

// SendCommand1 reads a single register byte.
func (f *FFE) SendCommand1(addr uint16) (byte, error) {
	var buf [1]byte
	if err := f.ReceiveBlock(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// SelectPage maps page into the copier's address windows.
func (f *FFE) SelectPage(page uint16) error {
	return f.SendCommand(FFECmdPage, page, 0)
}
