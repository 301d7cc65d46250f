package header

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// internalHeader returns a plausible internal SNES header.
func internalHeader(mapMode byte) []byte {
	h := make([]byte, internalLen)
	copy(h, []byte("TEST GAME            "))
	h[0x15] = mapMode
	h[0x17] = 0x07
	h[0x1C], h[0x1D] = 0x34, 0x12
	h[0x1E], h[0x1F] = 0xCB, 0xED
	h[0x3C], h[0x3D] = 0x00, 0x80
	return h
}

func dump(size int, at int, mapMode byte) []byte {
	d := make([]byte, size)
	copy(d[at:], internalHeader(mapMode))
	return d
}

func TestHasHeader(t *testing.T) {
	tests := []struct {
		size int64
		want bool
	}{
		{size: 0, want: false},
		{size: 512, want: true},
		{size: 0x20000, want: false},
		{size: 0x20200, want: true},
		{size: 0x20100, want: false},
	}

	for _, tt := range tests {
		if got := HasHeader(tt.size); got != tt.want {
			t.Errorf("HasHeader(0x%X) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	fig := make([]byte, Size)
	fig[0], fig[1], fig[2], fig[3], fig[4], fig[5] = 0x00, 0x01, FIGMulti, FIGHiROM, 0x11, 0x22

	swc := make([]byte, Size)
	swc[0], swc[2], swc[8], swc[9], swc[10] = 0x40, SWCHiROM, IDLow, IDHigh, TypeSNES

	smc := make([]byte, Size)
	smc[3], smc[4], smc[7] = 8, 4, SMCExplicit

	tests := []struct {
		name    string
		input   []byte
		want    Header
		wantErr bool
		errMsg  string
	}{
		{
			name:  "fig",
			input: fig,
			want:  Header{Format: FIG, Blocks: 0x100, HiROM: true, Multi: true, Emulation: [2]byte{0x11, 0x22}},
		},
		{
			name:  "swc",
			input: swc,
			want:  Header{Format: SWC, Blocks: 0x40, HiROM: true},
		},
		{
			name:  "smc explicit",
			input: smc,
			want:  Header{Format: SMC, PRG: 8, CHR: 4},
		},
		{
			name:    "blank",
			input:   make([]byte, Size),
			wantErr: true,
			errMsg:  "unrecognised",
		},
		{
			name:    "short",
			input:   make([]byte, 100),
			wantErr: true,
			errMsg:  "too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Parse() error = %v, want error containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			got.Raw = nil
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	tests := []Header{
		{Format: FIG, Blocks: 0x80, HiROM: true, Emulation: FIGEmulation(true)},
		{Format: FIG, Blocks: 0x10, Multi: true, Emulation: [2]byte{0x47, 0x83}},
		{Format: SWC, Blocks: 0x200, Multi: true, HiROM: false},
		{Format: SMC, PRG: 16, CHR: 8},
	}

	for _, want := range tests {
		t.Run(want.Format.String(), func(t *testing.T) {
			raw, err := Build(want)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if len(raw) != Size {
				t.Fatalf("Build() length = %d, want %d", len(raw), Size)
			}
			got, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			got.Raw = nil
			if !reflect.DeepEqual(*got, want) {
				t.Errorf("Parse(Build()) = %+v, want %+v", *got, want)
			}
		})
	}
}

func TestBuildFIGDefaultsEmulation(t *testing.T) {
	raw, err := Build(Header{Format: FIG, Blocks: 4})
	if err != nil {
		t.Fatal(err)
	}
	if raw[4] != 0x77 || raw[5] != 0x83 {
		t.Errorf("emulation = %02X %02X, want 77 83", raw[4], raw[5])
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{name: "unknown format", h: Header{Blocks: 1}},
		{name: "fig without size", h: Header{Format: FIG}},
		{name: "swc too large", h: Header{Format: SWC, Blocks: 0x10000}},
		{name: "smc empty", h: Header{Format: SMC}},
		{name: "smc prg overflow", h: Header{Format: SMC, PRG: 0x100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.h); err == nil {
				t.Error("Build() expected error, got nil")
			}
		})
	}
}

func TestFixer(t *testing.T) {
	tests := []struct {
		name   string
		dump   []byte
		format Format
		hirom  bool
		blocks int
	}{
		{name: "lorom", dump: dump(0x20000, LoROMInternal, 0x20), hirom: false, blocks: 16},
		{name: "hirom", dump: dump(0x20000, HiROMInternal, 0x21), hirom: true, blocks: 16},
		{name: "short lorom", dump: dump(0x8000, LoROMInternal, 0x20), hirom: false, blocks: 4},
		{name: "swc ragged", dump: dump(0x10100, HiROMInternal, 0x31), format: SWC, hirom: true, blocks: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Fixer{Format: tt.format}.Fix(bytes.NewReader(tt.dump), int64(len(tt.dump)))
			if err != nil {
				t.Fatalf("Fix() unexpected error: %v", err)
			}
			h, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if h.HiROM != tt.hirom {
				t.Errorf("HiROM = %v, want %v", h.HiROM, tt.hirom)
			}
			if h.Blocks != tt.blocks {
				t.Errorf("Blocks = %d, want %d", h.Blocks, tt.blocks)
			}
		})
	}

	if _, err := (Fixer{}).Fix(bytes.NewReader(nil), 0); err == nil {
		t.Error("Fix() of an empty dump expected error, got nil")
	}
}

func TestScore(t *testing.T) {
	good := internalHeader(0x21)
	if got := Score(good, true); got != 10 {
		t.Errorf("Score(hirom header, hirom) = %d, want 10", got)
	}
	if got := Score(good, false); got != 8 {
		t.Errorf("Score(hirom header, lorom) = %d, want 8", got)
	}
	if got := Score(make([]byte, internalLen), false); got != 0 {
		t.Errorf("Score(blank) = %d, want 0", got)
	}
	if got := Score(good[:10], true); got != -1 {
		t.Errorf("Score(short) = %d, want -1", got)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	raw, err := Build(Header{Format: FIG, Blocks: 1})
	if err != nil {
		t.Fatal(err)
	}
	withHeader := filepath.Join(dir, "game.fig")
	if err := os.WriteFile(withHeader, append(raw, make([]byte, BlockSize)...), 0o644); err != nil {
		t.Fatal(err)
	}
	bare := filepath.Join(dir, "game.sfc")
	if err := os.WriteFile(bare, make([]byte, BlockSize), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := ParseFile(withHeader)
	if err != nil || h == nil || h.Format != FIG || h.BodySize() != BlockSize {
		t.Errorf("ParseFile(with header) = %+v, %v", h, err)
	}

	h, err = ParseFile(bare)
	if err != nil || h != nil {
		t.Errorf("ParseFile(bare) = %+v, %v; want nil, nil", h, err)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("ParseFile(missing) expected error, got nil")
	}
}
