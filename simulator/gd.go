package simulator

import (
	"encoding/binary"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// Unit is one Game Doctor storage unit.
type Unit struct {
	Name string
	Data []byte
}

type gdState int

const (
	gdMagic gdState = iota
	gdKind
	gdCount
	gdTable
	gdOp
	gdBlockHeader
	gdBlockData
	gdUnitArg
)

// GD is a loopback Game Doctor. Generation 3 uses the SF3 busy/strobe
// handshake; generation 6 the SF6/SF7 toggle bit.
type GD struct {
	gen   int
	magic protocol.GDMagic
	inj   injector

	ctl     byte
	data    byte
	prev    byte
	line    byte
	ack     byte
	cur     byte
	syncAck bool
	out     []byte

	state   gdState
	buf     []byte
	open    bool
	write   bool
	kind    byte
	count   int
	op      byte
	unit    byte
	offset  uint32
	length  int
	pending []Unit

	// ROM holds the DRAM units.
	ROM []Unit

	// SRAM is the save RAM; nil when empty.
	SRAM []byte

	// Syncs counts completed resynchronisations.
	Syncs int

	// Sessions counts closed sessions.
	Sessions int
}

// NewGD creates an empty Game Doctor of generation 3 or 6.
func NewGD(gen int, f Faults) *GD {
	d := &GD{gen: gen, magic: protocol.GD6Magic, inj: injector{f: f}}
	if gen == 3 {
		d.magic = protocol.GD3Magic
	}
	return d
}

// LoadROM replaces the DRAM units.
func (d *GD) LoadROM(units ...Unit) {
	d.ROM = units
}

// Image returns the DRAM units concatenated.
func (d *GD) Image() []byte {
	var out []byte
	for _, u := range d.ROM {
		out = append(out, u.Data...)
	}
	return out
}

func (d *GD) nibble() byte {
	v := d.cur
	if d.gen == 3 {
		v = 0
		if len(d.out) > 0 {
			v = d.out[0]
		}
	}
	if d.ctl&port.ControlAutoFeed != 0 {
		v >>= 4
	}
	return (v & 0x0F) << 3
}

// ReadReg implements port.Port.
func (d *GD) ReadReg(r port.Register) byte {
	switch r {
	case port.Data:
		return d.data
	case port.Control:
		return d.ctl
	case port.Status:
	default:
		return 0xFF
	}

	if d.gen == 3 {
		if d.inj.stalled() {
			return 0
		}
		return port.StatusBusy | d.nibble()
	}

	// a refused strobe already leaves ack behind; a stall hides an accepted one
	ack := d.ack
	if !d.inj.hung && d.inj.stalled() {
		ack ^= 1
	}
	if d.syncAck {
		return ack<<7 | protocol.GDSyncAck
	}
	return ack<<7 | d.nibble()
}

// WriteReg implements port.Port.
func (d *GD) WriteReg(r port.Register, v byte) {
	switch r {
	case port.Data:
		d.writeData(v)
	case port.Control:
		if d.gen == 3 {
			d.control3(v)
		} else {
			d.control6(v)
		}
	}
}

func (d *GD) writeData(v byte) {
	prev := d.prev
	d.prev = v
	d.data = v
	if d.gen == 3 {
		return
	}

	// data line activity drops a pending reply
	d.out = nil
	d.cur = 0
	if d.ctl&port.ControlAutoFeed != 0 && prev == protocol.GDSyncSentinel1 && v == protocol.GDSyncSentinel2 {
		if d.inj.sync() {
			d.syncAck = true
		}
	}
}

func (d *GD) control3(v byte) {
	rising := d.ctl&port.ControlStrobe == 0 && v&port.ControlStrobe != 0
	d.ctl = v
	if v&port.ControlInit == 0 {
		if d.inj.sync() {
			d.resync()
		}
		return
	}
	if !rising || !d.inj.exchange() {
		return
	}
	if len(d.out) > 0 {
		d.out = d.out[1:]
		return
	}
	d.feed(d.data)
}

// control6 takes a byte exchange on every STROBE edge made with AUTOFEED
// low. Edges under AUTOFEED belong to the sync sequence.
func (d *GD) control6(v byte) {
	d.ctl = v
	strobe := v & port.ControlStrobe
	edge := strobe != d.line
	d.line = strobe
	if d.syncAck && v&port.ControlAutoFeed == 0 {
		d.syncAck = false
		d.resync()
		return
	}

	if !edge || v&port.ControlAutoFeed != 0 || !d.inj.exchange() {
		return
	}
	d.ack = strobe
	if len(d.out) > 0 {
		d.cur = d.out[0]
		d.out = d.out[1:]
		return
	}
	d.feed(d.data)
}

// resync drops link state and any partial command but keeps an open session.
func (d *GD) resync() {
	d.Syncs++
	d.ack = 0
	d.cur = 0
	d.out = nil
	d.buf = d.buf[:0]
	if d.open {
		d.state = gdOp
	} else {
		d.state = gdMagic
	}
}

func (d *GD) feed(b byte) {
	switch d.state {
	case gdMagic:
		d.buf = append(d.buf, b)
		if len(d.buf) < 4 {
			return
		}
		var m [4]byte
		copy(m[:], d.buf)
		d.buf = d.buf[:0]
		switch m {
		case d.magic.Write:
			d.write = true
			d.state = gdKind
		case d.magic.Read:
			d.write = false
			d.state = gdKind
		default:
			// resynchronise on the next 'G'
			for i := 1; i < 4; i++ {
				if m[i] == d.magic.Write[0] {
					d.buf = append(d.buf, m[i:]...)
					break
				}
			}
		}

	case gdKind:
		d.kind = b
		if d.write {
			d.state = gdCount
			return
		}
		d.open = true
		d.state = gdOp

	case gdCount:
		d.count = int(b)
		d.pending = d.pending[:0]
		d.state = gdTable

	case gdTable:
		d.buf = append(d.buf, b)
		if len(d.buf) < protocol.GDUnitInfoSize {
			return
		}
		name := string(trimName(d.buf[:protocol.GDNameLen]))
		size := binary.LittleEndian.Uint32(d.buf[protocol.GDNameLen:])
		d.buf = d.buf[:0]
		d.pending = append(d.pending, Unit{Name: name, Data: make([]byte, size)})
		if len(d.pending) == d.count {
			d.allocate()
			d.open = true
			d.state = gdOp
		}

	case gdOp:
		d.op = b
		switch b {
		case protocol.GDOpBlockWrite, protocol.GDOpBlockRead:
			d.state = gdBlockHeader
		case protocol.GDOpUnitInfo:
			d.state = gdUnitArg
		case protocol.GDOpEnd:
			d.open = false
			d.Sessions++
			d.state = gdMagic
		case d.magic.Write[0]:
			d.open = false
			d.buf = append(d.buf[:0], b)
			d.state = gdMagic
		}

	case gdBlockHeader:
		d.buf = append(d.buf, b)
		if len(d.buf) < 7 {
			return
		}
		d.unit = d.buf[0]
		d.offset = binary.LittleEndian.Uint32(d.buf[1:5])
		d.length = int(binary.LittleEndian.Uint16(d.buf[5:7]))
		d.buf = d.buf[:0]
		if d.op == protocol.GDOpBlockRead {
			d.out = d.readBlock()
			d.state = gdOp
			return
		}
		d.state = gdBlockData

	case gdBlockData:
		d.buf = append(d.buf, b)
		if len(d.buf) < d.length {
			return
		}
		if u := d.storage(d.unit); u != nil && int(d.offset) < len(*u) {
			copy((*u)[d.offset:], d.buf)
		}
		d.buf = d.buf[:0]
		d.state = gdOp

	case gdUnitArg:
		d.out = d.unitInfo(b)
		d.state = gdOp
	}
}

func (d *GD) allocate() {
	if d.kind == protocol.GDKindSRAM {
		d.SRAM = d.pending[0].Data
		return
	}
	d.ROM = append([]Unit(nil), d.pending...)
}

func (d *GD) storage(unit byte) *[]byte {
	if d.kind == protocol.GDKindSRAM {
		if unit != 0 || d.SRAM == nil {
			return nil
		}
		return &d.SRAM
	}
	if int(unit) >= len(d.ROM) {
		return nil
	}
	return &d.ROM[unit].Data
}

func (d *GD) readBlock() []byte {
	out := make([]byte, d.length)
	if u := d.storage(d.unit); u != nil && int(d.offset) < len(*u) {
		copy(out, (*u)[d.offset:])
	}
	return out
}

func (d *GD) unitInfo(unit byte) []byte {
	var name string
	var size uint32
	if d.kind == protocol.GDKindSRAM {
		if unit == 0 && d.SRAM != nil {
			name, size = protocol.GDSRAMName, uint32(len(d.SRAM))
		}
	} else if int(unit) < len(d.ROM) {
		name, size = d.ROM[unit].Name, uint32(len(d.ROM[unit].Data))
	}
	n := protocol.PadName(name)
	return binary.LittleEndian.AppendUint32(n[:], size)
}

func trimName(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return b[:end]
}
