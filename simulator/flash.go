package simulator

import (
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

type flashState int

const (
	flashArray flashState = iota
	flashID
	flashStatus
	flashErase
	flashCount
	flashBuffer
	flashConfirm
)

type pendingByte struct {
	addr uint32
	v    byte
}

// Flash is a loopback ToToTek programmer with a flash cartridge, as used by
// the Super Flash and generic ToToTek adapters.
type Flash struct {
	// Chip identifies the simulated flash part.
	Chip protocol.FlashChip

	// Mem is the flash content.
	Mem []byte

	// SRAM is the cartridge save RAM.
	SRAM []byte

	// Erases counts block erase cycles; Programs counts write buffer cycles.
	Erases   int
	Programs int

	// BusyReads is the number of status reads a cycle stays busy.
	BusyReads int

	faults Faults
	ai     byte
	addr   uint32
	mode   byte
	state  flashState
	status byte
	busy   int
	count  int
	buffer []pendingByte
}

// NewFlash creates a programmer holding an erased chip and sramSize bytes of
// save RAM.
func NewFlash(chip protocol.FlashChip, sramSize int, f Faults) *Flash {
	mem := make([]byte, chip.Size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Flash{
		Chip:   chip,
		Mem:    mem,
		SRAM:   make([]byte, sramSize),
		faults: f,
		status: protocol.FlashStatusReady,
	}
}

// Load copies data into flash at addr, as if programmed earlier.
func (d *Flash) Load(addr int, data []byte) {
	copy(d.Mem[addr:], data)
}

// ReadReg implements port.Port.
func (d *Flash) ReadReg(r port.Register) byte {
	switch r {
	case port.EPPAddress:
		return d.ai
	case port.EPPData:
		switch d.ai {
		case protocol.TTTAddrLow:
			return byte(d.addr)
		case protocol.TTTAddrMid:
			return byte(d.addr >> 8)
		case protocol.TTTAddrHigh:
			return byte(d.addr >> 16)
		case protocol.TTTMode:
			return d.mode
		case protocol.TTTDataPort:
			v := d.busRead(d.addr)
			d.addr = (d.addr + 1) & 0xFFFFFF
			return v
		}
	case port.Status:
		return port.StatusBusy
	}
	return 0xFF
}

// WriteReg implements port.Port.
func (d *Flash) WriteReg(r port.Register, v byte) {
	switch r {
	case port.EPPAddress:
		d.ai = v
	case port.EPPData:
		switch d.ai {
		case protocol.TTTAddrLow:
			d.addr = d.addr&^0xFF | uint32(v)
		case protocol.TTTAddrMid:
			d.addr = d.addr&^0xFF00 | uint32(v)<<8
		case protocol.TTTAddrHigh:
			d.addr = d.addr&^0xFF0000 | uint32(v)<<16
		case protocol.TTTMode:
			d.mode = v
		case protocol.TTTDataPort:
			d.busWrite(d.addr, v)
			d.addr = (d.addr + 1) & 0xFFFFFF
		}
	}
}

func (d *Flash) busRead(a uint32) byte {
	switch d.mode {
	case protocol.TTTModeSRAM:
		if len(d.SRAM) == 0 {
			return 0xFF
		}
		return d.SRAM[int(a)%len(d.SRAM)]
	case protocol.TTTModeFlash:
	default:
		return 0xFF
	}

	switch d.state {
	case flashArray:
		return d.Mem[int(a)%len(d.Mem)]
	case flashID:
		if a&1 == 0 {
			return d.Chip.Maker
		}
		return d.Chip.Device
	default:
		if d.busy > 0 {
			d.busy--
			return d.status &^ protocol.FlashStatusReady
		}
		return d.status
	}
}

func (d *Flash) busWrite(a uint32, v byte) {
	switch d.mode {
	case protocol.TTTModeSRAM:
		if len(d.SRAM) > 0 {
			d.SRAM[int(a)%len(d.SRAM)] = v
		}
		return
	case protocol.TTTModeFlash:
	default:
		return
	}

	switch d.state {
	case flashErase:
		d.state = flashStatus
		if v != protocol.FlashConfirm {
			d.status |= protocol.FlashStatusEraseErr | protocol.FlashStatusProgramErr
			return
		}
		d.erase(a)

	case flashCount:
		d.count = int(v) + 1
		d.buffer = d.buffer[:0]
		d.state = flashBuffer

	case flashBuffer:
		d.buffer = append(d.buffer, pendingByte{addr: a, v: v})
		if len(d.buffer) == d.count {
			d.state = flashConfirm
		}

	case flashConfirm:
		d.state = flashStatus
		if v != protocol.FlashConfirm {
			d.status |= protocol.FlashStatusEraseErr | protocol.FlashStatusProgramErr
			return
		}
		d.program()

	default:
		d.command(v)
	}
}

func (d *Flash) command(v byte) {
	switch v {
	case protocol.FlashReadArray:
		d.state = flashArray
	case protocol.FlashReadID:
		d.state = flashID
	case protocol.FlashReadStatus:
		d.state = flashStatus
	case protocol.FlashClearStatus:
		d.status = protocol.FlashStatusReady
	case protocol.FlashBlockErase:
		d.state = flashErase
	case protocol.FlashWriteBuffer:
		d.state = flashCount
	}
}

func (d *Flash) erase(a uint32) {
	d.Erases++
	d.busy = d.BusyReads
	if d.faults.FailErase > 0 && d.Erases == d.faults.FailErase {
		d.status |= protocol.FlashStatusEraseErr
		return
	}
	start := int(a) / d.Chip.BlockSize * d.Chip.BlockSize
	if start >= len(d.Mem) {
		return
	}
	end := start + d.Chip.BlockSize
	for i := start; i < end && i < len(d.Mem); i++ {
		d.Mem[i] = 0xFF
	}
}

func (d *Flash) program() {
	d.Programs++
	d.busy = d.BusyReads
	for _, p := range d.buffer {
		i := int(p.addr) % len(d.Mem)
		d.Mem[i] &= p.v
		if d.Mem[i] != p.v {
			d.status |= protocol.FlashStatusProgramErr
		}
	}
}
