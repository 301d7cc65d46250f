package header

import "fmt"

// Constants for copier header layout.
const (
	// Size is the length of every copier header
	Size = 512

	// BlockSize is the unit of the size field
	BlockSize = 0x2000

	// FIGMulti marks all but the last file of a split FIG image (byte 2)
	FIGMulti = 0x40

	// FIGHiROM marks a HiROM FIG image (byte 3)
	FIGHiROM = 0x80

	// SWCMulti and SWCHiROM are bits of the SWC mode byte (byte 2)
	SWCMulti = 0x40
	SWCHiROM = 0x30

	// IDLow and IDHigh identify FFE-style headers (bytes 8 and 9)
	IDLow  = 0xAA
	IDHigh = 0xBB

	// TypeSNES and TypeNES are FFE file types (byte 10)
	TypeSNES = 0x04
	TypeNES  = 0x08

	// SMCExplicit in byte 7 marks explicit PRG/CHR sizes in bytes 3 and 4
	SMCExplicit = 0xAA
)

// Format is a copier header format.
type Format int

// Supported header formats.
const (
	Unknown Format = iota
	FIG
	SWC
	SMC
)

func (f Format) String() string {
	switch f {
	case FIG:
		return "fig"
	case SWC:
		return "swc"
	case SMC:
		return "smc"
	default:
		return "unknown"
	}
}

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	for _, f := range []Format{FIG, SWC, SMC} {
		if f.String() == name {
			return f, nil
		}
	}
	return Unknown, fmt.Errorf("unknown header format %q", name)
}

// Header is a decoded copier header.
type Header struct {
	// Format is the header format
	Format Format

	// Blocks is the image size in 8 KB blocks (FIG and SWC)
	Blocks int

	// HiROM is set for HiROM SNES images
	HiROM bool

	// Multi is set on all but the last file of a split image
	Multi bool

	// Emulation holds the FIG emulation bytes 4 and 5
	Emulation [2]byte

	// PRG and CHR are the NES bank sizes in 8 KB blocks (SMC)
	PRG int
	CHR int

	// Raw is the header as read, nil for built headers
	Raw []byte
}

// BodySize returns the image size the header declares.
func (h *Header) BodySize() int64 {
	if h.Format == SMC {
		return int64(h.PRG+h.CHR) * BlockSize
	}
	return int64(h.Blocks) * BlockSize
}

// FIGEmulation returns the emulation bytes a FIG uses for a cartridge
// without save RAM.
func FIGEmulation(hirom bool) [2]byte {
	if hirom {
		return [2]byte{0xDD, 0x82}
	}
	return [2]byte{0x77, 0x83}
}
