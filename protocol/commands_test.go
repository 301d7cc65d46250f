package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestFFEChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty", data: nil, want: 0x81},
		{name: "single byte", data: []byte{0x81}, want: 0x00},
		{name: "page select", data: []byte{0x05, 0x00, 0x02, 0x00, 0x00}, want: 0x86},
		{name: "self cancelling", data: []byte{0x12, 0x34, 0x12, 0x34}, want: 0x81},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FFEChecksum(tt.data); got != tt.want {
				t.Errorf("FFEChecksum() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestBuildFFECommand(t *testing.T) {
	tests := []struct {
		name   string
		cmd    byte
		addr   uint16
		length uint16
		want   []byte
	}{
		{
			name: "select page 0x200",
			cmd:  FFECmdPage, addr: 0x0200, length: 0,
			want: []byte{0xD5, 0xAA, 0x96, 0x05, 0x00, 0x02, 0x00, 0x00, 0x86},
		},
		{
			name: "read map byte",
			cmd:  FFECmdRead, addr: 0xBFD5, length: 1,
			want: []byte{0xD5, 0xAA, 0x96, 0x01, 0xD5, 0xBF, 0x01, 0x00, 0xEB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := BuildFFECommand(tt.cmd, tt.addr, tt.length)
			if !bytes.Equal(frame, tt.want) {
				t.Errorf("frame = % X, want % X", frame, tt.want)
			}
		})
	}
}

func TestFFEFrameChecksumProperty(t *testing.T) {
	// the trailing byte always cancels the header to the seed's complement
	for cmd := 0; cmd < 8; cmd++ {
		for _, addr := range []uint16{0, 0x1234, 0xBFD7, 0xFFFF} {
			frame := BuildFFECommand(byte(cmd), addr, addr^0x5A5A)
			if len(frame) != FFEFrameSize {
				t.Fatalf("frame length = %d, want %d", len(frame), FFEFrameSize)
			}
			var x byte
			for _, b := range frame[3:] {
				x ^= b
			}
			if x != FFEChecksumSeed {
				t.Errorf("cmd %d addr 0x%04X: xor of body = 0x%02X, want 0x81", cmd, addr, x)
			}
		}
	}
}

func TestBuildGDWriteProlog(t *testing.T) {
	tests := []struct {
		name    string
		units   []GDUnit
		wantLen int
		wantErr bool
		errMsg  string
	}{
		{
			name:    "two units",
			units:   []GDUnit{{Name: "SF16TSTA.078", Size: 0x100000}, {Name: "SF16TSTB.078", Size: 0x100000}},
			wantLen: 6 + 2*GDUnitInfoSize,
		},
		{
			name:    "no units",
			units:   nil,
			wantErr: true,
			errMsg:  "unit count",
		},
		{
			name:    "oversized unit",
			units:   []GDUnit{{Name: "BIG", Size: GDUnitLimit + 1}},
			wantErr: true,
			errMsg:  "out of range",
		},
		{
			name:    "empty unit",
			units:   []GDUnit{{Name: "NONE", Size: 0}},
			wantErr: true,
			errMsg:  "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildGDWriteProlog(GD6Magic, GDKindROM, tt.units)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(frame) != tt.wantLen {
				t.Fatalf("frame length = %d, want %d", len(frame), tt.wantLen)
			}
			if string(frame[:4]) != "GD6W" {
				t.Errorf("magic = %q, want GD6W", frame[:4])
			}
			if frame[5] != byte(len(tt.units)) {
				t.Errorf("count = %d, want %d", frame[5], len(tt.units))
			}
			size := binary.LittleEndian.Uint32(frame[6+GDNameLen : 6+GDUnitInfoSize])
			if size != tt.units[0].Size {
				t.Errorf("first unit size = 0x%X, want 0x%X", size, tt.units[0].Size)
			}
		})
	}
}

func TestBuildGDBlockHeader(t *testing.T) {
	hdr, err := BuildGDBlockHeader(GDOpBlockRead, 2, 0x012345, 0x2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{GDOpBlockRead, 0x02, 0x45, 0x23, 0x01, 0x00, 0x00, 0x20}
	if !bytes.Equal(hdr, want) {
		t.Errorf("header = % X, want % X", hdr, want)
	}

	if _, err := BuildGDBlockHeader(GDOpUnitInfo, 0, 0, 1); err == nil {
		t.Error("expected error for non-block opcode")
	}
	if _, err := BuildGDBlockHeader(GDOpBlockWrite, 0, 0, 0); err == nil {
		t.Error("expected error for empty block")
	}
	if _, err := BuildGDBlockHeader(GDOpBlockWrite, 0, 0, GDMaxBlock+1); err == nil {
		t.Error("expected error for oversized block")
	}
}

func TestBuildGDReadProlog(t *testing.T) {
	frame := BuildGDReadProlog(GD3Magic, GDKindSRAM)
	want := []byte{'G', 'D', '3', 'R', GDKindSRAM}
	if !bytes.Equal(frame, want) {
		t.Errorf("prolog = % X, want % X", frame, want)
	}
}

func TestPadName(t *testing.T) {
	name := PadName("sf8abc.078")
	if string(name[:]) != "SF8ABC.078  " {
		t.Errorf("PadName = %q", name)
	}

	long := PadName("ABCDEFGHIJKLMNOP")
	if string(long[:]) != "ABCDEFGHIJKL" {
		t.Errorf("PadName truncation = %q", long)
	}
}
