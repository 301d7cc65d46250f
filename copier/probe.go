package copier

import (
	"context"

	"github.com/moffa90/go-copier/transfer"
)

// ProbeResult is what a copier reports about the inserted cartridge.
type ProbeResult struct {
	// HiROM is the cartridge mapping
	HiROM bool

	// ROMSize is the ROM size in bytes, 0 when unknown
	ROMSize int64

	// Chip names the flash part, empty for DRAM copiers
	Chip string

	// ChipSize is the flash capacity in bytes
	ChipSize int64

	// SRAMSize is the save RAM size in bytes, 0 when there is none
	SRAMSize int64
}

// Prober is implemented by adapters that can inspect the cartridge without
// transferring it.
type Prober interface {
	Probe(ctx context.Context, s *transfer.Session) (ProbeResult, error)
}

var (
	_ Prober = (*fig)(nil)
	_ Prober = (*flashCart)(nil)
)

// Probe reads the mapping and size of the cartridge in the FIG slot.
func (f *fig) Probe(ctx context.Context, s *transfer.Session) (ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return ProbeResult{}, err
	}
	if err := negotiate(s); err != nil {
		return ProbeResult{}, err
	}
	hirom, size, err := f.probe(s)
	if err != nil {
		return ProbeResult{}, err
	}
	if err := finalize(s); err != nil {
		return ProbeResult{}, err
	}
	res := ProbeResult{HiROM: hirom, ROMSize: size}
	return res, f.eng.Do(s, "fig reset", f.link, func() error {
		return f.link.SelectPage(0)
	})
}

// Probe identifies the flash chip and, on SNES carts, decodes the internal
// header.
func (c *flashCart) Probe(ctx context.Context, s *transfer.Session) (ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return ProbeResult{}, err
	}
	if err := negotiate(s); err != nil {
		return ProbeResult{}, err
	}
	chip, err := c.identify(s)
	if err != nil {
		return ProbeResult{}, err
	}
	res := ProbeResult{Chip: chip.Name, ChipSize: int64(chip.Size), HiROM: true}

	if c.snes {
		h, err := c.header(s)
		if err != nil {
			return ProbeResult{}, err
		}
		res.HiROM = isHiROM(h[0x15])
		// a blank cart has no usable size code
		if size, err := romSize("flash probe", h[0x17]); err == nil {
			res.ROMSize = size
		}
		if code := h[0x18]; code > 0 && code <= 7 {
			res.SRAMSize = int64(1024) << code
		}
	}
	return res, c.end(s)
}
