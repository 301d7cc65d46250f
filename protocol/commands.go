package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildFFECommand constructs an FFE command frame.
//
// Frame structure:
//
//	[D5][AA][96][CMD][ADDR_L][ADDR_H][LEN_L][LEN_H][CHECKSUM]
//
// The checksum covers CMD through LEN_H.
func BuildFFECommand(cmd byte, addr, length uint16) []byte {
	frame := make([]byte, FFEFrameSize)
	frame[0] = FFEPreamble0
	frame[1] = FFEPreamble1
	frame[2] = FFEPreamble2
	frame[3] = cmd
	binary.LittleEndian.PutUint16(frame[4:6], addr)
	binary.LittleEndian.PutUint16(frame[6:8], length)
	frame[8] = FFEChecksum(frame[3:8])
	return frame
}

// GDUnit is one entry of a Game Doctor write prolog.
type GDUnit struct {
	Name string
	Size uint32
}

// BuildGDWriteProlog constructs the prolog of a Game Doctor write session.
//
// Structure:
//
//	[MAGIC(4)][KIND][COUNT]{[NAME(12)][SIZE(4)]}*COUNT
func BuildGDWriteProlog(magic GDMagic, kind byte, units []GDUnit) ([]byte, error) {
	if len(units) == 0 || len(units) > 0xFF {
		return nil, fmt.Errorf("unit count must be 1-255, got %d", len(units))
	}

	frame := make([]byte, 0, 6+len(units)*GDUnitInfoSize)
	frame = append(frame, magic.Write[:]...)
	frame = append(frame, kind, byte(len(units)))

	for _, u := range units {
		if u.Size == 0 || u.Size > GDUnitLimit {
			return nil, fmt.Errorf("unit %s: size %d out of range", u.Name, u.Size)
		}
		name := PadName(u.Name)
		frame = append(frame, name[:]...)
		frame = binary.LittleEndian.AppendUint32(frame, u.Size)
	}

	return frame, nil
}

// BuildGDReadProlog constructs the prolog of a Game Doctor read session.
//
// Structure:
//
//	[MAGIC(4)][KIND]
func BuildGDReadProlog(magic GDMagic, kind byte) []byte {
	frame := make([]byte, 0, 5)
	frame = append(frame, magic.Read[:]...)
	return append(frame, kind)
}

// BuildGDBlockHeader constructs the header of a BlockWrite or BlockRead
// command. For BlockWrite the data follows the header.
//
// Structure:
//
//	[OP][UNIT][OFFSET(4)][LEN(2)]
func BuildGDBlockHeader(op byte, unit byte, offset uint32, length int) ([]byte, error) {
	if op != GDOpBlockWrite && op != GDOpBlockRead {
		return nil, fmt.Errorf("invalid block opcode 0x%02X", op)
	}
	if length <= 0 || length > GDMaxBlock {
		return nil, fmt.Errorf("block length must be 1-%d, got %d", GDMaxBlock, length)
	}

	frame := make([]byte, 0, 8)
	frame = append(frame, op, unit)
	frame = binary.LittleEndian.AppendUint32(frame, offset)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(length))
	return frame, nil
}

// BuildGDUnitInfo constructs a Unit Info command.
//
// Structure:
//
//	[OP][UNIT]
func BuildGDUnitInfo(unit byte) []byte {
	return []byte{GDOpUnitInfo, unit}
}
