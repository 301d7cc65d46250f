package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ParseGDUnitInfo parses the reply to a Unit Info command.
//
// Structure:
//
//	[NAME(12)][SIZE(4)]
func ParseGDUnitInfo(data []byte) (UnitInfo, error) {
	if len(data) != GDUnitInfoSize {
		return UnitInfo{}, fmt.Errorf("unit info reply must be %d bytes, got %d", GDUnitInfoSize, len(data))
	}

	info := UnitInfo{
		Name: strings.TrimRight(string(data[:GDNameLen]), " \x00"),
		Size: binary.LittleEndian.Uint32(data[GDNameLen:]),
	}
	if info.Size > GDUnitLimit {
		return UnitInfo{}, &ProtocolSizeError{
			Operation: "unit info",
			Size:      int64(info.Size),
			Reason:    fmt.Sprintf("unit larger than %d bytes", GDUnitLimit),
		}
	}
	return info, nil
}

// CheckFlashStatus converts a flash status register value into an error.
// Returns nil when no error bit is set.
func CheckFlashStatus(op string, addr uint32, status byte) error {
	if status&FlashStatusErrors == 0 {
		return nil
	}
	return &FlashError{Operation: op, Address: addr, Status: status}
}
