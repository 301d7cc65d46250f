package protocol

import "strings"

// UnitInfo describes one Game Doctor storage unit.
// Returned by the Unit Info command.
type UnitInfo struct {
	// Name is the unit name, trailing padding removed
	Name string

	// Size is the unit size in bytes; zero means the unit does not exist
	Size uint32
}

// FlashChip describes a flash part by its JEDEC identifier.
type FlashChip struct {
	// Maker is the manufacturer code
	Maker byte

	// Device is the device code
	Device byte

	// Name is the part name
	Name string

	// Size is the capacity in bytes
	Size int

	// BlockSize is the erase block size in bytes
	BlockSize int
}

// LookupChip finds a flash part by its identifier.
func LookupChip(maker, device byte) (FlashChip, bool) {
	for _, c := range FlashChips {
		if c.Maker == maker && c.Device == device {
			return c, true
		}
	}
	return FlashChip{}, false
}

// PadName encodes a unit name as a fixed GDNameLen field, space padded.
func PadName(name string) [GDNameLen]byte {
	var out [GDNameLen]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], strings.ToUpper(name))
	return out
}
