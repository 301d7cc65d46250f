package header

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// HasHeader reports whether a file of size bytes starts with a copier
// header. Images are whole kilobytes; a header adds 512 bytes.
func HasHeader(size int64) bool {
	return size >= Size && size%1024 == Size
}

// Detect identifies the format of h. FFE-style headers carry an id and a
// file type; anything else with a plausible size field is taken as FIG.
func Detect(h []byte) Format {
	if len(h) < Size {
		return Unknown
	}
	if h[8] == IDLow && h[9] == IDHigh {
		switch h[10] {
		case TypeSNES:
			return SWC
		case TypeNES:
			return SMC
		}
		return Unknown
	}
	if h[7] == SMCExplicit {
		return SMC
	}
	if binary.LittleEndian.Uint16(h) != 0 {
		return FIG
	}
	return Unknown
}

// Parse decodes a copier header.
//
// Example:
//
//	h, err := header.Parse(buf[:header.Size])
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s header, %d blocks, hirom=%v\n", h.Format, h.Blocks, h.HiROM)
func Parse(h []byte) (*Header, error) {
	if len(h) < Size {
		return nil, fmt.Errorf("header too short: got %d bytes, expected %d", len(h), Size)
	}

	out := &Header{Format: Detect(h), Raw: append([]byte(nil), h[:Size]...)}
	switch out.Format {
	case FIG:
		out.Blocks = int(binary.LittleEndian.Uint16(h))
		out.Multi = h[2]&FIGMulti != 0
		out.HiROM = h[3]&FIGHiROM != 0
		out.Emulation = [2]byte{h[4], h[5]}
	case SWC:
		out.Blocks = int(binary.LittleEndian.Uint16(h))
		out.Multi = h[2]&SWCMulti != 0
		out.HiROM = h[2]&SWCHiROM != 0
	case SMC:
		if h[7] == SMCExplicit {
			out.PRG, out.CHR = int(h[3]), int(h[4])
		}
	default:
		return nil, fmt.Errorf("unrecognised copier header")
	}
	return out, nil
}

// ParseReader reads and decodes the header at the start of r.
func ParseReader(r io.Reader) (*Header, error) {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return Parse(buf)
}

// ParseFile decodes the header of the file at path. It returns nil and no
// error when the file has no header.
func ParseFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !HasHeader(fi.Size()) {
		return nil, nil
	}
	return ParseReader(f)
}

// Build encodes h.
func Build(h Header) ([]byte, error) {
	out := make([]byte, Size)
	switch h.Format {
	case FIG:
		if h.Blocks <= 0 || h.Blocks > 0xFFFF {
			return nil, fmt.Errorf("block count %d out of range", h.Blocks)
		}
		binary.LittleEndian.PutUint16(out, uint16(h.Blocks))
		if h.Multi {
			out[2] = FIGMulti
		}
		if h.HiROM {
			out[3] = FIGHiROM
		}
		emu := h.Emulation
		if emu == [2]byte{} {
			emu = FIGEmulation(h.HiROM)
		}
		out[4], out[5] = emu[0], emu[1]

	case SWC:
		if h.Blocks <= 0 || h.Blocks > 0xFFFF {
			return nil, fmt.Errorf("block count %d out of range", h.Blocks)
		}
		binary.LittleEndian.PutUint16(out, uint16(h.Blocks))
		if h.Multi {
			out[2] |= SWCMulti
		}
		if h.HiROM {
			out[2] |= SWCHiROM
		}
		out[8], out[9], out[10] = IDLow, IDHigh, TypeSNES

	case SMC:
		if h.PRG < 0 || h.PRG > 0xFF || h.CHR < 0 || h.CHR > 0xFF || h.PRG+h.CHR == 0 {
			return nil, fmt.Errorf("bank sizes %d/%d out of range", h.PRG, h.CHR)
		}
		out[3], out[4], out[7] = byte(h.PRG), byte(h.CHR), SMCExplicit
		out[8], out[9], out[10] = IDLow, IDHigh, TypeNES

	default:
		return nil, fmt.Errorf("cannot build %s header", h.Format)
	}
	return out, nil
}
