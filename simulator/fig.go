package simulator

import "github.com/moffa90/go-copier/protocol"

// maxDRAM caps the simulated copier DRAM at 64 Mbit.
const maxDRAM = 8 << 20

// FIG is a loopback Pro Fighter.
type FIG struct {
	*ffe

	// ROM is the DRAM content, in 8 KB block order.
	ROM []byte

	// SRAM is the save RAM.
	SRAM []byte

	// HiROM selects the HiROM read mapping and header mirror.
	HiROM bool

	// Regs holds every register write.
	Regs map[uint16]byte

	// Started is set by the start command; StartBlocks is its block count.
	Started     bool
	StartBlocks int
}

// NewFIG creates a Pro Fighter holding rom.
func NewFIG(rom []byte, hirom bool, f Faults) *FIG {
	d := &FIG{
		ROM:   append([]byte(nil), rom...),
		SRAM:  make([]byte, protocol.FIGSRAMSize),
		HiROM: hirom,
		Regs:  make(map[uint16]byte),
	}
	d.ffe = newFFE(d, f)
	return d
}

func inWindow(addr, window uint16) bool {
	return addr >= window && addr < window+protocol.FIGBlockSize
}

func (d *FIG) romByte(i int) byte {
	if i < 0 || i >= len(d.ROM) {
		return 0
	}
	return d.ROM[i]
}

func (d *FIG) read(page, addr uint16) byte {
	switch {
	case page == 0 && addr >= protocol.FIGHeaderProbe && addr < protocol.FIGHeaderProbe+0x20:
		base := 0x7FC0
		if d.HiROM {
			base = 0xFFC0
		}
		return d.romByte(base + int(addr-protocol.FIGHeaderProbe))

	case inWindow(addr, protocol.FIGLowWindow):
		off := int(addr - protocol.FIGLowWindow)
		if page >= protocol.FIGPageSRAM && page < protocol.FIGPageSRAM+4 {
			return d.SRAM[int(page-protocol.FIGPageSRAM)*protocol.FIGBlockSize+off]
		}
		if page >= protocol.FIGPageHiROMLow {
			q := int(page - protocol.FIGPageHiROMLow)
			return d.romByte((q/4*8+q%4)*protocol.FIGBlockSize + off)
		}

	case inWindow(addr, protocol.FIGHighWindow):
		off := int(addr - protocol.FIGHighWindow)
		if page >= protocol.FIGPageROM {
			chunk := int(page - protocol.FIGPageROM)
			if d.HiROM {
				chunk = chunk/4*8 + chunk%4 + 4
			}
			return d.romByte(chunk*protocol.FIGBlockSize + off)
		}
	}
	return d.Regs[addr]
}

func (d *FIG) write(page, addr uint16, v byte) {
	switch {
	case inWindow(addr, protocol.FIGWriteWindow) && page >= protocol.FIGPageROM:
		i := int(page-protocol.FIGPageROM)*protocol.FIGBlockSize + int(addr-protocol.FIGWriteWindow)
		if i >= maxDRAM {
			return
		}
		if i >= len(d.ROM) {
			d.ROM = append(d.ROM, make([]byte, i+1-len(d.ROM))...)
		}
		d.ROM[i] = v

	case inWindow(addr, protocol.FIGLowWindow) && page >= protocol.FIGPageSRAM && page < protocol.FIGPageSRAM+4:
		d.SRAM[int(page-protocol.FIGPageSRAM)*protocol.FIGBlockSize+int(addr-protocol.FIGLowWindow)] = v

	default:
		d.Regs[addr] = v
		if addr == protocol.FIGRegHiROM {
			d.HiROM = v&0x80 != 0
		}
	}
}

func (d *FIG) exec(addr, length uint16) {
	d.Started = true
	d.StartBlocks = int(addr>>8) | int(length)<<8
	if n := d.StartBlocks * protocol.FIGBlockSize; n < len(d.ROM) {
		d.ROM = d.ROM[:n]
	}
}

// SMC is a loopback Super Magic Card.
type SMC struct {
	*ffe

	// PRG and CHR hold the uploaded banks.
	PRG []byte
	CHR []byte

	// SRAM is the save RAM.
	SRAM []byte

	// Regs holds every register write.
	Regs map[uint16]byte

	// Started is set by the start command.
	Started bool
}

// NewSMC creates an empty Super Magic Card.
func NewSMC(f Faults) *SMC {
	d := &SMC{
		SRAM: make([]byte, protocol.SMCSRAMSize),
		Regs: make(map[uint16]byte),
	}
	d.ffe = newFFE(d, f)
	return d
}

// Mode returns the mode block written by the last upload.
func (d *SMC) Mode() []byte {
	out := make([]byte, protocol.SMCModeLen)
	for i := range out {
		out[i] = d.Regs[protocol.SMCModeBlock+uint16(i)]
	}
	return out
}

func (d *SMC) read(page, addr uint16) byte {
	switch {
	case addr >= protocol.SMCSRAMWindow && addr < protocol.SMCSRAMWindow+protocol.SMCSRAMSize:
		return d.SRAM[addr-protocol.SMCSRAMWindow]
	case addr >= protocol.SMCWindow && addr < protocol.SMCWindow+protocol.SMCBlockSize:
		bank, i := d.bank(page, addr)
		if i < len(*bank) {
			return (*bank)[i]
		}
		return 0
	}
	return d.Regs[addr]
}

func (d *SMC) write(page, addr uint16, v byte) {
	switch {
	case addr >= protocol.SMCSRAMWindow && addr < protocol.SMCSRAMWindow+protocol.SMCSRAMSize:
		d.SRAM[addr-protocol.SMCSRAMWindow] = v
	case addr >= protocol.SMCWindow && addr < protocol.SMCWindow+protocol.SMCBlockSize:
		bank, i := d.bank(page, addr)
		if i >= maxDRAM {
			return
		}
		if i >= len(*bank) {
			*bank = append(*bank, make([]byte, i+1-len(*bank))...)
		}
		(*bank)[i] = v
	default:
		d.Regs[addr] = v
	}
}

func (d *SMC) bank(page, addr uint16) (*[]byte, int) {
	off := int(addr - protocol.SMCWindow)
	if page >= protocol.SMCPageCHR {
		return &d.CHR, int(page-protocol.SMCPageCHR)*protocol.SMCBlockSize + off
	}
	return &d.PRG, int(page-protocol.SMCPagePRG)*protocol.SMCBlockSize + off
}

func (d *SMC) exec(addr, length uint16) {
	d.Started = true
}
