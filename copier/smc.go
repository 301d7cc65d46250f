package copier

import (
	"context"
	"io"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// SMCBlocks decodes the PRG and CHR sizes, in 8 KB blocks, from an SMC
// header. An explicit size pair (byte 7 = 0xAA) wins over the mode bits of
// byte 0, which win over the size bits of byte 1.
func SMCBlocks(h []byte) (prg, chr int, err error) {
	if len(h) < protocol.SMCModeLen {
		return 0, 0, &protocol.ProtocolSizeError{Operation: "smc header", Size: int64(len(h)), Reason: "header too short"}
	}

	switch {
	case h[7] == 0xAA:
		prg, chr = int(h[3]), int(h[4])
	case h[0]&0x30 != 0:
		prg = 32
		if h[0]&0x10 != 0 {
			prg = 16
		}
	default:
		prg = protocol.SMCPRGBlocks[h[1]>>6]
		chr = protocol.SMCCHRBlocks[(h[1]>>4)&3]
	}

	if prg+chr == 0 {
		return 0, 0, &protocol.ProtocolSizeError{Operation: "smc header", Size: 0, Reason: "header declares no PRG or CHR data"}
	}
	if prg > protocol.SMCPageCHR {
		return 0, 0, &protocol.ProtocolSizeError{Operation: "smc header", Size: int64(prg) * protocol.SMCBlockSize, Reason: "PRG exceeds copier DRAM"}
	}
	return prg, chr, nil
}

type smc struct {
	base
	link *protocol.FFE
}

func newSMC(b base, p port.Port) *smc {
	polls := b.eng.Polls()
	return &smc{base: b, link: protocol.NewFFE(p, polls.FFE, polls.Settle)}
}

func (m *smc) ReadROM(context.Context, *transfer.Session, io.Writer) (int64, error) {
	return 0, m.unsupported(ReadROM)
}

func (m *smc) WriteROM(ctx context.Context, s *transfer.Session, img Image) error {
	prg, chr, err := SMCBlocks(img.Header)
	if err != nil {
		return err
	}
	size := int64(prg+chr) * protocol.SMCBlockSize
	if img.Size < size {
		return &protocol.ProtocolSizeError{Operation: "smc write", Size: img.Size, Reason: "image is shorter than its header declares"}
	}
	if err := negotiate(s); err != nil {
		return err
	}

	if err := m.eng.Do(s, "smc arm", m.link, func() error {
		if err := m.link.SendCommand0(protocol.SMCRegMode, protocol.SMCModeValue); err != nil {
			return err
		}
		return m.link.SendCommand0(protocol.SMCRegDRAM, protocol.SMCDRAMValue)
	}); err != nil {
		return err
	}
	m.log.Info("uploading", "prg_blocks", prg, "chr_blocks", chr)
	s.Grow(size)

	mover := transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			i := int(off / protocol.SMCBlockSize)
			page := uint16(protocol.SMCPagePRG + i)
			if i >= prg {
				page = uint16(protocol.SMCPageCHR + i - prg)
			}
			if err := m.link.SelectPage(page); err != nil {
				return err
			}
			return m.link.SendBlock(protocol.SMCWindow, buf)
		},
		ResyncFunc: m.link.Resync,
	}
	if err := m.eng.Send(ctx, s, img.Body, size, protocol.SMCBlockSize, mover); err != nil {
		return err
	}

	if err := finalize(s); err != nil {
		return err
	}
	return m.eng.Do(s, "smc start", m.link, func() error {
		if err := m.link.SendBlock(protocol.SMCModeBlock, img.Header[:protocol.SMCModeLen]); err != nil {
			return err
		}
		return m.link.SendCommand(protocol.FFECmdExec, protocol.SMCExecAddr, 0)
	})
}

func (m *smc) sramMover(send bool) transfer.Mover {
	return transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			addr := uint16(protocol.SMCSRAMWindow + off)
			if send {
				return m.link.SendBlock(addr, buf)
			}
			return m.link.ReceiveBlock(addr, buf)
		},
		ResyncFunc: m.link.Resync,
	}
}

func (m *smc) enableSRAM(s *transfer.Session) error {
	return m.eng.Do(s, "smc sram enable", m.link, func() error {
		return m.link.SendCommand0(protocol.SMCRegSRAM, 0)
	})
}

func (m *smc) ReadSRAM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if err := negotiate(s); err != nil {
		return 0, err
	}
	if err := m.enableSRAM(s); err != nil {
		return 0, err
	}
	s.Grow(protocol.SMCSRAMSize)

	if err := m.eng.Receive(ctx, s, w, protocol.SMCSRAMSize, protocol.SMCSRAMChunk, m.sramMover(false)); err != nil {
		return s.Done, err
	}
	return protocol.SMCSRAMSize, finalize(s)
}

func (m *smc) WriteSRAM(ctx context.Context, s *transfer.Session, img Image) error {
	if img.Size <= 0 || img.Size > protocol.SMCSRAMSize {
		return &protocol.ProtocolSizeError{Operation: "smc sram write", Size: img.Size, Reason: "save RAM holds 8 KB"}
	}
	if err := negotiate(s); err != nil {
		return err
	}
	if err := m.enableSRAM(s); err != nil {
		return err
	}
	s.Grow(img.Size)

	if err := m.eng.Send(ctx, s, img.Body, img.Size, protocol.SMCSRAMChunk, m.sramMover(true)); err != nil {
		return err
	}
	return finalize(s)
}
