package copier

import (
	"context"
	"io"

	"github.com/moffa90/go-copier/header"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// FIGMaxBlocks is the largest image the FIG DRAM holds, in 8 KB blocks.
const FIGMaxBlocks = 0x400

// FIGBlockCount returns the number of counted blocks of a dump of mbit
// megabits. HiROM counts a pair of 8 KB transfers as one block.
func FIGBlockCount(mbit int, hirom bool) int {
	blocks := mbit * 16
	if hirom {
		blocks >>= 1
	}
	return blocks
}

// FIGReadAddress returns the page and window of 8 KB chunk i of a dump.
// HiROM dumps alternate between the low-half and high-half counters every
// 32 KB.
func FIGReadAddress(i int, hirom bool) (page, window uint16) {
	if !hirom {
		return uint16(protocol.FIGPageROM + i), protocol.FIGHighWindow
	}
	iter, j := i/8, i%8
	if j < 4 {
		return uint16(protocol.FIGPageHiROMLow + iter*4 + j), protocol.FIGLowWindow
	}
	return uint16(protocol.FIGPageROM + iter*4 + j - 4), protocol.FIGHighWindow
}

type fig struct {
	base
	link *protocol.FFE
}

func newFIG(b base, p port.Port) *fig {
	polls := b.eng.Polls()
	return &fig{base: b, link: protocol.NewFFE(p, polls.FFE, polls.Settle)}
}

// probe reads the cartridge's map mode and size.
func (f *fig) probe(s *transfer.Session) (hirom bool, size int64, err error) {
	var mapMode, sizeCode byte
	err = f.eng.Do(s, "fig probe", f.link, func() error {
		if err := f.link.SelectPage(0); err != nil {
			return err
		}
		if err := f.link.SendCommand0(protocol.FIGRegReset, 0); err != nil {
			return err
		}
		if err := f.link.SendCommand0(protocol.FIGRegCart, 0); err != nil {
			return err
		}
		var err error
		if mapMode, err = f.link.SendCommand1(protocol.FIGMapProbe); err != nil {
			return err
		}
		sizeCode, err = f.link.SendCommand1(protocol.FIGSizeProbe)
		return err
	})
	if err != nil {
		return false, 0, err
	}

	hirom = isHiROM(mapMode)
	bytes, err := romSize("fig probe", sizeCode)
	if err != nil {
		return false, 0, err
	}
	mbit := int(bytes >> 17)
	chunks := FIGBlockCount(mbit, hirom)
	if hirom {
		chunks *= 2
	}
	return hirom, int64(chunks) * protocol.FIGBlockSize, nil
}

func (f *fig) ReadROM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if err := negotiate(s); err != nil {
		return 0, err
	}
	hirom, size, err := f.probe(s)
	if err != nil {
		return 0, err
	}
	f.log.Info("rom probed", "family", f.Family(), "hirom", hirom, "bytes", size)
	s.Grow(size)

	mover := transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			page, window := FIGReadAddress(int(off/protocol.FIGBlockSize), hirom)
			if err := f.link.SelectPage(page); err != nil {
				return err
			}
			return f.link.ReceiveBlock(window, buf)
		},
		ResyncFunc: f.link.Resync,
	}
	if err := f.eng.Receive(ctx, s, w, size, protocol.FIGBlockSize, mover); err != nil {
		return s.Done, err
	}

	if err := finalize(s); err != nil {
		return s.Done, err
	}
	return size, f.eng.Do(s, "fig reset", f.link, func() error {
		return f.link.SelectPage(0)
	})
}

// emulation returns the FIG mode bytes for img. Only a FIG header carries
// them; other images get the defaults for their mapping.
func (f *fig) emulation(img Image) (hirom, emu1, emu2 byte) {
	if h, err := header.Parse(img.Header); err == nil && h.Format == header.FIG {
		return h.Raw[3], h.Emulation[0], h.Emulation[1]
	}
	if img.HiROM {
		hirom = header.FIGHiROM
	}
	emu := header.FIGEmulation(img.HiROM)
	return hirom, emu[0], emu[1]
}

func (f *fig) WriteROM(ctx context.Context, s *transfer.Session, img Image) error {
	blocks := int((img.Size + protocol.FIGBlockSize - 1) / protocol.FIGBlockSize)
	if img.Size <= 0 || blocks > FIGMaxBlocks {
		return &protocol.ProtocolSizeError{Operation: "fig write", Size: img.Size, Reason: "image does not fit the copier DRAM"}
	}
	if err := negotiate(s); err != nil {
		return err
	}

	if err := f.eng.Do(s, "fig arm", f.link, func() error {
		return f.link.SendCommand0(protocol.FIGRegDRAM, 0)
	}); err != nil {
		return err
	}
	s.Grow(img.Size)

	mover := transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			i := int(off / protocol.FIGBlockSize)
			if err := f.link.SendCommand0(protocol.FIGRegBank, byte(i>>9)); err != nil {
				return err
			}
			if err := f.link.SelectPage(uint16(protocol.FIGPageROM + i)); err != nil {
				return err
			}
			return f.link.SendBlock(protocol.FIGWriteWindow, buf)
		},
		ResyncFunc: f.link.Resync,
	}
	if err := f.eng.Send(ctx, s, img.Body, img.Size, protocol.FIGBlockSize, mover); err != nil {
		return err
	}

	if err := finalize(s); err != nil {
		return err
	}
	mode, emu1, emu2 := f.emulation(img)
	f.log.Debug("starting program", "blocks", blocks, "mode", mode)
	return f.eng.Do(s, "fig start", f.link, func() error {
		if blocks > protocol.FIGBankSplit {
			if err := f.link.SendCommand0(protocol.FIGRegBank, 2); err != nil {
				return err
			}
		}
		for _, r := range []struct {
			addr uint16
			v    byte
		}{
			{protocol.FIGRegHiROM, mode},
			{protocol.FIGRegEmu1, emu1},
			{protocol.FIGRegEmu2, emu2},
		} {
			if err := f.link.SendCommand0(r.addr, r.v); err != nil {
				return err
			}
		}
		if err := f.link.SelectPage(0); err != nil {
			return err
		}
		return f.link.SendCommand(protocol.FFECmdExec,
			uint16(protocol.FIGExecMode|(blocks&0xFF)<<8), uint16(blocks>>8))
	})
}

// selectSRAM switches the bus to save RAM.
func (f *fig) selectSRAM(s *transfer.Session) error {
	return f.eng.Do(s, "fig sram select", f.link, func() error {
		if err := f.link.SelectPage(protocol.FIGPageSRAMSelect); err != nil {
			return err
		}
		if err := f.link.SendCommand0(protocol.FIGRegSRAM, 0); err != nil {
			return err
		}
		return f.link.SendCommand0(protocol.FIGRegDRAM, 0)
	})
}

func (f *fig) sramMover(send bool) transfer.Mover {
	return transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			page := uint16(protocol.FIGPageSRAM + off/protocol.FIGBlockSize)
			if err := f.link.SelectPage(page); err != nil {
				return err
			}
			if send {
				return f.link.SendBlock(protocol.FIGLowWindow, buf)
			}
			return f.link.ReceiveBlock(protocol.FIGLowWindow, buf)
		},
		ResyncFunc: f.link.Resync,
	}
}

func (f *fig) ReadSRAM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if err := negotiate(s); err != nil {
		return 0, err
	}
	if err := f.selectSRAM(s); err != nil {
		return 0, err
	}
	s.Grow(protocol.FIGSRAMSize)

	if err := f.eng.Receive(ctx, s, w, protocol.FIGSRAMSize, protocol.FIGBlockSize, f.sramMover(false)); err != nil {
		return s.Done, err
	}
	if err := finalize(s); err != nil {
		return s.Done, err
	}
	return protocol.FIGSRAMSize, f.eng.Do(s, "fig reset", f.link, func() error {
		return f.link.SelectPage(0)
	})
}

func (f *fig) WriteSRAM(ctx context.Context, s *transfer.Session, img Image) error {
	if img.Size <= 0 || img.Size > protocol.FIGSRAMSize {
		return &protocol.ProtocolSizeError{Operation: "fig sram write", Size: img.Size, Reason: "save RAM holds 32 KB"}
	}
	if err := negotiate(s); err != nil {
		return err
	}
	if err := f.selectSRAM(s); err != nil {
		return err
	}
	s.Grow(img.Size)

	if err := f.eng.Send(ctx, s, img.Body, img.Size, protocol.FIGBlockSize, f.sramMover(true)); err != nil {
		return err
	}
	if err := finalize(s); err != nil {
		return err
	}
	return f.eng.Do(s, "fig reset", f.link, func() error {
		return f.link.SelectPage(0)
	})
}
