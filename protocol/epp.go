package protocol

import (
	"fmt"

	"github.com/moffa90/go-copier/port"
)

// EPP drives the ToToTek register file over EPP cycles. An address cycle
// selects a register index; data cycles read or write it.
type EPP struct {
	port port.Port
}

// NewEPP creates an EPP link on p with the cartridge bus disconnected.
func NewEPP(p port.Port) *EPP {
	e := &EPP{port: p}
	p.WriteReg(port.Control, port.ControlInit)
	e.SetMode(TTTModeOff)
	return e
}

// SetAI selects register index ai.
func (e *EPP) SetAI(ai byte) {
	e.port.WriteReg(port.EPPAddress, ai)
}

// SetAIData writes v to register index ai.
func (e *EPP) SetAIData(ai, v byte) {
	e.SetAI(ai)
	e.port.WriteReg(port.EPPData, v)
}

// SetMode connects the cartridge bus to flash, SRAM or nothing.
func (e *EPP) SetMode(mode byte) {
	e.SetAIData(TTTMode, mode)
}

// SetAddress loads the 24-bit bus address and selects the data port.
func (e *EPP) SetAddress(addr uint32) {
	e.SetAIData(TTTAddrLow, byte(addr))
	e.SetAIData(TTTAddrMid, byte(addr>>8))
	e.SetAIData(TTTAddrHigh, byte(addr>>16))
	e.SetAI(TTTDataPort)
}

// WriteMem writes one byte to the bus at addr.
func (e *EPP) WriteMem(addr uint32, v byte) {
	e.SetAddress(addr)
	e.port.WriteReg(port.EPPData, v)
}

// ReadMem reads one byte from the bus at addr.
func (e *EPP) ReadMem(addr uint32) byte {
	e.SetAddress(addr)
	return e.port.ReadReg(port.EPPData)
}

// ReadStream fills buf from consecutive bus addresses starting at addr.
func (e *EPP) ReadStream(addr uint32, buf []byte) error {
	e.SetAddress(addr)
	for i := range buf {
		buf[i] = e.port.ReadReg(port.EPPData)
	}
	return port.Err(e.port)
}

// WriteStream writes data to consecutive bus addresses starting at addr.
func (e *EPP) WriteStream(addr uint32, data []byte) error {
	e.SetAddress(addr)
	for _, b := range data {
		e.port.WriteReg(port.EPPData, b)
	}
	return port.Err(e.port)
}

// Flash issues flash commands through an EPP link. The bus must be in
// TTTModeFlash.
type Flash struct {
	epp  *EPP
	poll PollBudget
}

// NewFlash creates a flash command layer.
func NewFlash(e *EPP, poll PollBudget) *Flash {
	return &Flash{epp: e, poll: poll}
}

// Identify reads the chip identifier and looks it up.
func (f *Flash) Identify() (FlashChip, error) {
	f.epp.WriteMem(0, FlashReadID)
	maker := f.epp.ReadMem(0)
	device := f.epp.ReadMem(1)
	f.epp.WriteMem(0, FlashReadArray)

	if err := port.Err(f.epp.port); err != nil {
		return FlashChip{}, err
	}
	chip, ok := LookupChip(maker, device)
	if !ok {
		return FlashChip{}, fmt.Errorf("unknown flash chip %02X:%02X", maker, device)
	}
	return chip, nil
}

// waitReady polls the status register at addr. The chip must already be in
// status mode.
func (f *Flash) waitReady(op string, addr uint32) (byte, error) {
	return f.poll.Poll(op, func() byte {
		return f.epp.ReadMem(addr)
	}, func(status byte) bool {
		return status&FlashStatusReady != 0
	})
}

func (f *Flash) finish(op string, addr uint32, status byte) error {
	if err := CheckFlashStatus(op, addr, status); err != nil {
		f.epp.WriteMem(addr, FlashClearStatus)
		f.epp.WriteMem(addr, FlashReadArray)
		return err
	}
	f.epp.WriteMem(addr, FlashReadArray)
	return nil
}

// EraseBlock erases the block containing addr.
func (f *Flash) EraseBlock(addr uint32) error {
	f.epp.WriteMem(addr, FlashClearStatus)
	f.epp.WriteMem(addr, FlashBlockErase)
	f.epp.WriteMem(addr, FlashConfirm)

	status, err := f.waitReady("block erase", addr)
	if err != nil {
		return err
	}
	return f.finish("block erase", addr, status)
}

// WritePage programs up to FlashPageSize bytes starting at addr through the
// write buffer. data must not cross a page boundary.
func (f *Flash) WritePage(addr uint32, data []byte) error {
	if len(data) == 0 || len(data) > FlashPageSize {
		return fmt.Errorf("page length must be 1-%d, got %d", FlashPageSize, len(data))
	}
	if int(addr%FlashPageSize)+len(data) > FlashPageSize {
		return fmt.Errorf("write at 0x%06X crosses a page boundary", addr)
	}

	f.epp.WriteMem(addr, FlashWriteBuffer)
	if _, err := f.waitReady("write buffer", addr); err != nil {
		return err
	}
	f.epp.WriteMem(addr, byte(len(data)-1))
	if err := f.epp.WriteStream(addr, data); err != nil {
		return err
	}
	f.epp.WriteMem(addr, FlashConfirm)

	status, err := f.waitReady("write buffer", addr)
	if err != nil {
		return err
	}
	return f.finish("write buffer", addr, status)
}
