package simulator

import (
	"encoding/binary"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// memory is the address space behind an FFE frame parser.
type memory interface {
	read(page, addr uint16) byte
	write(page, addr uint16, v byte)
	exec(addr, length uint16)
}

type ffeState int

const (
	ffePreamble ffeState = iota
	ffeHeader
	ffeData
	ffeSum
)

var preamble = [3]byte{protocol.FFEPreamble0, protocol.FFEPreamble1, protocol.FFEPreamble2}

// ffe is the FFE link and frame parser shared by the FIG and SMC devices.
type ffe struct {
	mem  memory
	inj  injector
	ctl  byte
	data byte

	state  ffeState
	match  int
	header []byte
	cmd    byte
	addr   uint16
	length uint16
	block  []byte
	page   uint16

	out   []byte
	phase int

	// Frames counts accepted command frames.
	Frames int

	// BadFrames counts frames dropped for a bad header checksum.
	BadFrames int

	// BadBlocks counts write blocks dropped for a bad data checksum.
	BadBlocks int

	// Resets counts honoured nInit pulses.
	Resets int
}

func newFFE(mem memory, f Faults) *ffe {
	return &ffe{mem: mem, inj: injector{f: f}}
}

// ReadReg implements port.Port.
func (d *ffe) ReadReg(r port.Register) byte {
	switch r {
	case port.Data:
		return d.data
	case port.Control:
		return d.ctl
	case port.Status:
		if d.inj.stalled() {
			return 0
		}
		status := byte(port.StatusBusy)
		if len(d.out) > 0 {
			v := d.out[0]
			if d.phase == 1 {
				v >>= 4
			}
			status |= (v & 0x0F) << 3
		}
		return status
	}
	return 0xFF
}

// WriteReg implements port.Port.
func (d *ffe) WriteReg(r port.Register, v byte) {
	switch r {
	case port.Data:
		d.data = v
	case port.Control:
		toggled := (d.ctl^v)&port.ControlStrobe != 0
		d.ctl = v
		if v&port.ControlInit == 0 {
			if d.inj.sync() {
				d.reset()
			}
			return
		}
		if !toggled {
			return
		}
		if !d.inj.exchange() {
			return
		}
		if len(d.out) > 0 {
			d.phase++
			if d.phase == 2 {
				d.phase = 0
				d.out = d.out[1:]
			}
			return
		}
		d.feed(d.data)
	}
}

func (d *ffe) reset() {
	d.Resets++
	d.state = ffePreamble
	d.match = 0
	d.out = nil
	d.phase = 0
}

func (d *ffe) feed(b byte) {
	switch d.state {
	case ffePreamble:
		switch {
		case b == preamble[d.match]:
			d.match++
		case b == preamble[0]:
			d.match = 1
		default:
			d.match = 0
		}
		if d.match == len(preamble) {
			d.match = 0
			d.header = d.header[:0]
			d.state = ffeHeader
		}

	case ffeHeader:
		d.header = append(d.header, b)
		if len(d.header) < 6 {
			return
		}
		d.state = ffePreamble
		if protocol.FFEChecksum(d.header[:5]) != d.header[5] {
			d.BadFrames++
			return
		}
		d.Frames++
		d.cmd = d.header[0]
		d.addr = binary.LittleEndian.Uint16(d.header[1:3])
		d.length = binary.LittleEndian.Uint16(d.header[3:5])
		d.command()

	case ffeData:
		d.block = append(d.block, b)
		if len(d.block) == int(d.length) {
			d.state = ffeSum
		}

	case ffeSum:
		d.state = ffePreamble
		if protocol.FFEChecksum(d.block) != b {
			d.BadBlocks++
			return
		}
		for i, v := range d.block {
			d.mem.write(d.page, d.addr+uint16(i), v)
		}
	}
}

func (d *ffe) command() {
	switch d.cmd {
	case protocol.FFECmdWrite:
		if d.length > 0 {
			d.block = d.block[:0]
			d.state = ffeData
		}
	case protocol.FFECmdRead:
		out := make([]byte, 0, int(d.length)+1)
		for i := uint16(0); i < d.length; i++ {
			out = append(out, d.mem.read(d.page, d.addr+i))
		}
		sum := protocol.FFEChecksum(out)
		if d.inj.readBlock() {
			sum ^= 0xFF
		}
		d.out = append(out, sum)
		d.phase = 0
	case protocol.FFECmdPage:
		d.page = d.addr
	case protocol.FFECmdExec:
		d.mem.exec(d.addr, d.length)
	}
}
