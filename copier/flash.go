package copier

import (
	"context"
	"io"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// SuperFlashAddress maps an image offset to a Super Flash address. LoROM
// banks occupy the upper 32 KB of every 64 KB flash bank; HiROM is linear.
func SuperFlashAddress(off uint32, hirom bool) uint32 {
	if hirom {
		return off
	}
	return (off&^0x7FFF)<<1 | 0x8000 | off&0x7FFF
}

// flashCart drives a flash cartridge on a ToToTek programmer. The Super Flash
// adds SNES address remapping, header probing and save RAM.
type flashCart struct {
	base
	epp   *protocol.EPP
	flash *protocol.Flash
	snes  bool
	mode  byte
}

func newFlashCart(b base, p port.Port) *flashCart {
	e := protocol.NewEPP(p)
	return &flashCart{
		base:  b,
		epp:   e,
		flash: protocol.NewFlash(e, b.eng.Polls().EPP),
		snes:  b.info.Family == SuperFlash,
		mode:  protocol.TTTModeOff,
	}
}

func (c *flashCart) setMode(mode byte) {
	c.mode = mode
	c.epp.SetMode(mode)
}

// Resync returns the bus to a known state. EPP cycles are acknowledged by
// the port itself, so only the flash command state needs resetting.
func (c *flashCart) Resync() error {
	c.epp.SetMode(c.mode)
	if c.mode == protocol.TTTModeFlash {
		c.epp.WriteMem(0, protocol.FlashClearStatus)
		c.epp.WriteMem(0, protocol.FlashReadArray)
	}
	return nil
}

func (c *flashCart) identify(s *transfer.Session) (protocol.FlashChip, error) {
	c.setMode(protocol.TTTModeFlash)
	var chip protocol.FlashChip
	err := c.eng.Do(s, "flash identify", c, func() error {
		var err error
		chip, err = c.flash.Identify()
		return err
	})
	if err == nil {
		c.log.Info("flash identified", "chip", chip.Name, "bytes", chip.Size)
	}
	return chip, err
}

// header reads the internal SNES header of the cartridge.
func (c *flashCart) header(s *transfer.Session) ([]byte, error) {
	h := make([]byte, 0x20)
	err := c.eng.Do(s, "flash header", c, func() error {
		return c.epp.ReadStream(protocol.FlashHeaderProbe, h)
	})
	return h, err
}

func (c *flashCart) end(s *transfer.Session) error {
	if err := finalize(s); err != nil {
		return err
	}
	c.setMode(protocol.TTTModeOff)
	return nil
}

func (c *flashCart) ReadROM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if err := negotiate(s); err != nil {
		return 0, err
	}
	chip, err := c.identify(s)
	if err != nil {
		return 0, err
	}

	size, hirom := int64(chip.Size), true
	if c.snes {
		h, err := c.header(s)
		if err != nil {
			return 0, err
		}
		hirom = isHiROM(h[0x15])
		if size, err = romSize("flash probe", h[0x17]); err != nil {
			return 0, err
		}
		if last := SuperFlashAddress(uint32(size-1), hirom); int(last) >= chip.Size {
			return 0, &protocol.ProtocolSizeError{Operation: "flash probe", Size: size, Reason: "header size exceeds the flash chip"}
		}
		c.log.Info("rom probed", "family", c.Family(), "hirom", hirom, "bytes", size)
	}
	s.Grow(size)

	mover := transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			addr := uint32(off)
			if c.snes {
				addr = SuperFlashAddress(addr, hirom)
			}
			return c.epp.ReadStream(addr, buf)
		},
		ResyncFunc: c.Resync,
	}
	if err := c.eng.Receive(ctx, s, w, size, protocol.FlashChunk, mover); err != nil {
		return s.Done, err
	}
	return size, c.end(s)
}

func allErased(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}

func (c *flashCart) WriteROM(ctx context.Context, s *transfer.Session, img Image) error {
	if img.Size <= 0 {
		return &protocol.ProtocolSizeError{Operation: "flash write", Size: img.Size, Reason: "empty image"}
	}
	if err := negotiate(s); err != nil {
		return err
	}
	chip, err := c.identify(s)
	if err != nil {
		return err
	}

	hirom := !c.snes || img.HiROM
	if last := SuperFlashAddress(uint32(img.Size-1), hirom); int64(last) >= int64(chip.Size) {
		return &protocol.ProtocolSizeError{Operation: "flash write", Size: img.Size, Reason: "image does not fit " + chip.Name}
	}
	s.Grow(img.Size)

	// every block the image touches is erased once, even where the image
	// itself is blank
	erased := make(map[int]bool)
	mover := transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			for p := 0; p < len(buf); p += protocol.FlashPageSize {
				page := buf[p:min(p+protocol.FlashPageSize, len(buf))]
				addr := SuperFlashAddress(uint32(off)+uint32(p), hirom)

				blk := int(addr) / chip.BlockSize
				if !erased[blk] {
					if err := c.flash.EraseBlock(uint32(blk * chip.BlockSize)); err != nil {
						return err
					}
					erased[blk] = true
				}
				if allErased(page) {
					continue
				}
				if err := c.flash.WritePage(addr, page); err != nil {
					return err
				}
			}
			return nil
		},
		ResyncFunc: c.Resync,
	}
	if err := c.eng.Send(ctx, s, img.Body, img.Size, protocol.FlashChunk, mover); err != nil {
		return err
	}
	c.log.Debug("flash written", "blocks_erased", len(erased))
	return c.end(s)
}

// sramSize reads the save RAM size from the cartridge header.
func (c *flashCart) sramSize(s *transfer.Session) (int64, error) {
	if _, err := c.identify(s); err != nil {
		return 0, err
	}
	h, err := c.header(s)
	if err != nil {
		return 0, err
	}
	code := h[0x18]
	if code == 0 {
		return 0, &protocol.ProtocolSizeError{Operation: "flash sram probe", Size: 0, Reason: "cartridge has no save RAM"}
	}
	size := int64(1024) << code
	if code > 7 || size > protocol.FlashSRAMMax {
		return 0, &protocol.ProtocolSizeError{Operation: "flash sram probe", Size: size, Reason: "unsupported save RAM size"}
	}
	return size, nil
}

func (c *flashCart) sramMover(send bool) transfer.Mover {
	return transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			if send {
				return c.epp.WriteStream(uint32(off), buf)
			}
			return c.epp.ReadStream(uint32(off), buf)
		},
		ResyncFunc: c.Resync,
	}
}

func (c *flashCart) ReadSRAM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if !c.Supports(ReadSRAM) {
		return 0, c.unsupported(ReadSRAM)
	}
	if err := negotiate(s); err != nil {
		return 0, err
	}
	size, err := c.sramSize(s)
	if err != nil {
		return 0, err
	}
	c.setMode(protocol.TTTModeSRAM)
	s.Grow(size)

	if err := c.eng.Receive(ctx, s, w, size, protocol.FlashChunk, c.sramMover(false)); err != nil {
		return s.Done, err
	}
	return size, c.end(s)
}

func (c *flashCart) WriteSRAM(ctx context.Context, s *transfer.Session, img Image) error {
	if !c.Supports(WriteSRAM) {
		return c.unsupported(WriteSRAM)
	}
	if img.Size <= 0 || img.Size > protocol.FlashSRAMMax {
		return &protocol.ProtocolSizeError{Operation: "flash sram write", Size: img.Size, Reason: "save RAM size out of range"}
	}
	if err := negotiate(s); err != nil {
		return err
	}
	c.setMode(protocol.TTTModeSRAM)
	s.Grow(img.Size)

	if err := c.eng.Send(ctx, s, img.Body, img.Size, protocol.FlashChunk, c.sramMover(true)); err != nil {
		return err
	}
	return c.end(s)
}
