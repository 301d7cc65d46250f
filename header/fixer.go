package header

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Offsets of the internal SNES header for each mapping.
const (
	LoROMInternal = 0x7FC0
	HiROMInternal = 0xFFC0

	internalLen = 0x40
)

// Fixer synthesises a copier header for a raw ROM dump.
type Fixer struct {
	// Format is the header format to build; Unknown means FIG
	Format Format
}

// Fix returns a header describing the size bytes of dump. The mapping is
// taken from whichever internal header location scores higher.
func (f Fixer) Fix(dump io.ReaderAt, size int64) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("empty dump")
	}
	hirom, err := DetectHiROM(dump, size)
	if err != nil {
		return nil, err
	}

	format := f.Format
	if format == Unknown {
		format = FIG
	}
	return Build(Header{
		Format: format,
		Blocks: int((size + BlockSize - 1) / BlockSize),
		HiROM:  hirom,
	})
}

// DetectHiROM scores the internal headers at the LoROM and HiROM locations
// and reports whether the HiROM one wins.
func DetectHiROM(dump io.ReaderAt, size int64) (bool, error) {
	lo, err := scoreAt(dump, size, LoROMInternal, false)
	if err != nil {
		return false, err
	}
	hi, err := scoreAt(dump, size, HiROMInternal, true)
	if err != nil {
		return false, err
	}
	return hi > lo, nil
}

func scoreAt(dump io.ReaderAt, size, off int64, hirom bool) (int, error) {
	if off+internalLen > size {
		return -1, nil
	}
	buf := make([]byte, internalLen)
	if _, err := dump.ReadAt(buf, off); err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read internal header at 0x%X: %w", off, err)
	}
	return Score(buf, hirom), nil
}

// Score rates how plausible h is as an internal SNES header for the given
// mapping. h starts at the title (0x7FC0 or 0xFFC0).
func Score(h []byte, hirom bool) int {
	if len(h) < internalLen {
		return -1
	}

	score := 0
	checksum := binary.LittleEndian.Uint16(h[0x1E:])
	complement := binary.LittleEndian.Uint16(h[0x1C:])
	if checksum^complement == 0xFFFF {
		score += 4
	}

	mapMode := h[0x15]
	if mapMode&0xE0 == 0x20 {
		score++
		if (mapMode&1 == 1) == hirom {
			score += 2
		}
	}
	if code := h[0x17]; code >= 7 && code <= 0x0D {
		score++
	}

	printable := true
	for _, c := range h[:0x15] {
		if c < 0x20 || c > 0x7E {
			printable = false
			break
		}
	}
	if printable {
		score++
	}

	// the reset vector points into ROM
	if binary.LittleEndian.Uint16(h[0x3C:]) >= 0x8000 {
		score++
	}
	return score
}
