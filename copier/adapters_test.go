package copier_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/moffa90/go-copier/copier"
	"github.com/moffa90/go-copier/header"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/simulator"
	"github.com/moffa90/go-copier/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(opts ...transfer.Option) *transfer.Engine {
	polls := transfer.WithPolls(transfer.Polls{FFE: 64, GD: 64, EPP: 64, Settle: 1})
	return transfer.New(append([]transfer.Option{polls}, opts...)...)
}

func pattern(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i>>8)
	}
	return out
}

// snesROM builds an image with an internal header at the LoROM or HiROM
// location.
func snesROM(size int, hirom bool, sizeCode, sramCode byte) []byte {
	rom := pattern(size)
	base, mapMode := 0x7FC0, byte(0x20)
	if hirom {
		base, mapMode = 0xFFC0, 0x21
	}
	rom[base+0x15] = mapMode
	rom[base+0x17] = sizeCode
	rom[base+0x18] = sramCode
	return rom
}

func setup(t *testing.T, family copier.Family, dev port.Port, dir transfer.Direction, opts ...transfer.Option) (copier.Adapter, *transfer.Session) {
	t.Helper()
	eng := testEngine(opts...)
	a, err := copier.New(family, dev, eng)
	require.NoError(t, err)
	return a, eng.NewSession(string(family), dir, "test.bin", dev)
}

func image(data []byte) copier.Image {
	return copier.Image{Body: bytes.NewReader(data), Size: int64(len(data))}
}

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := copier.New(copier.FIG, nil, nil)
	var pie *protocol.PortInitError
	assert.ErrorAs(t, err, &pie)

	_, err = copier.New("n64", simulator.NewSMC(simulator.Faults{}), nil)
	assert.Error(t, err)
}

func TestFIGReadROM(t *testing.T) {
	tests := []struct {
		name  string
		hirom bool
		size  int
		code  byte
	}{
		{name: "lorom 1 mbit", hirom: false, size: 0x20000, code: 0x07},
		{name: "hirom 2 mbit", hirom: true, size: 0x40000, code: 0x08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom := snesROM(tt.size, tt.hirom, tt.code, 0)
			dev := simulator.NewFIG(rom, tt.hirom, simulator.Faults{})
			a, s := setup(t, copier.FIG, dev, transfer.Read)

			var buf bytes.Buffer
			n, err := a.ReadROM(context.Background(), s, &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), n)
			assert.True(t, bytes.Equal(rom, buf.Bytes()))
			assert.Equal(t, protocol.Finalizing, s.State)
			assert.Equal(t, int64(tt.size), s.Total)
		})
	}
}

func TestFIGReadROMRecoversFromChecksumError(t *testing.T) {
	rom := snesROM(0x20000, false, 0x07, 0)
	// reads 1 and 2 are the header probes
	dev := simulator.NewFIG(rom, false, simulator.Faults{CorruptRead: 4})
	a, s := setup(t, copier.FIG, dev, transfer.Read)

	var buf bytes.Buffer
	_, err := a.ReadROM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(rom, buf.Bytes()))
	assert.Equal(t, 1, s.Retries())
	assert.Equal(t, 1, dev.Resets)
}

func TestFIGReadROMWithoutCartridge(t *testing.T) {
	dev := simulator.NewFIG(nil, false, simulator.Faults{})
	a, s := setup(t, copier.FIG, dev, transfer.Read)

	_, err := a.ReadROM(context.Background(), s, &bytes.Buffer{})
	assert.True(t, protocol.IsSizeError(err))
}

func TestFIGReadROMCancel(t *testing.T) {
	calls := 0
	rom := snesROM(0x20000, false, 0x07, 0)
	dev := simulator.NewFIG(rom, false, simulator.Faults{})
	a, s := setup(t, copier.FIG, dev, transfer.Read, transfer.WithCancelFunc(func() bool {
		calls++
		return calls > 2
	}))

	var buf bytes.Buffer
	n, err := a.ReadROM(context.Background(), s, &buf)
	require.ErrorIs(t, err, protocol.ErrUserAbort)
	assert.Equal(t, int64(2*protocol.FIGBlockSize), n)
	assert.Equal(t, 2*protocol.FIGBlockSize, buf.Len())
	assert.Equal(t, protocol.Cancelled, s.State)
}

func TestFIGWriteROM(t *testing.T) {
	body := pattern(0x5000)
	dev := simulator.NewFIG(nil, false, simulator.Faults{})
	a, s := setup(t, copier.FIG, dev, transfer.Write)

	require.NoError(t, a.WriteROM(context.Background(), s, image(body)))
	assert.Equal(t, body, dev.ROM)
	assert.True(t, dev.Started)
	assert.Equal(t, 3, dev.StartBlocks)
	assert.False(t, dev.HiROM)
	assert.Equal(t, byte(0x77), dev.Regs[protocol.FIGRegEmu1])
}

func TestFIGWriteROMUsesHeaderModes(t *testing.T) {
	header := make([]byte, 512)
	header[0] = 2
	header[3], header[4], header[5] = 0x80, 0x11, 0x22

	body := pattern(0x4000)
	dev := simulator.NewFIG(nil, false, simulator.Faults{})
	a, s := setup(t, copier.FIG, dev, transfer.Write)

	img := image(body)
	img.Header = header
	require.NoError(t, a.WriteROM(context.Background(), s, img))
	assert.True(t, dev.HiROM)
	assert.Equal(t, byte(0x11), dev.Regs[protocol.FIGRegEmu1])
	assert.Equal(t, byte(0x22), dev.Regs[protocol.FIGRegEmu2])
	assert.Equal(t, 2, dev.StartBlocks)
}

func TestFIGWriteROMIgnoresForeignHeaderModes(t *testing.T) {
	swc, err := header.Build(header.Header{Format: header.SWC, Blocks: 2, HiROM: true})
	require.NoError(t, err)
	smc, err := header.Build(header.Header{Format: header.SMC, PRG: 2})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header []byte
		hirom  bool
	}{
		{name: "swc hirom", header: swc, hirom: true},
		{name: "swc lorom", header: swc, hirom: false},
		{name: "foreign header", header: smc, hirom: false},
		{name: "unrecognised header", header: make([]byte, 512), hirom: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := simulator.NewFIG(nil, false, simulator.Faults{})
			a, s := setup(t, copier.FIG, dev, transfer.Write)

			img := image(pattern(0x4000))
			img.Header = tt.header
			img.HiROM = tt.hirom
			require.NoError(t, a.WriteROM(context.Background(), s, img))

			emu := header.FIGEmulation(tt.hirom)
			assert.Equal(t, tt.hirom, dev.HiROM)
			assert.Equal(t, emu[0], dev.Regs[protocol.FIGRegEmu1])
			assert.Equal(t, emu[1], dev.Regs[protocol.FIGRegEmu2])
		})
	}
}

func TestFIGWriteROMTooLarge(t *testing.T) {
	dev := simulator.NewFIG(nil, false, simulator.Faults{})
	a, s := setup(t, copier.FIG, dev, transfer.Write)

	err := a.WriteROM(context.Background(), s, copier.Image{Size: 0x800001})
	assert.True(t, protocol.IsSizeError(err))
	assert.Zero(t, dev.Frames)
}

func TestFIGSRAMRoundTrip(t *testing.T) {
	save := pattern(protocol.FIGSRAMSize)
	dev := simulator.NewFIG(nil, false, simulator.Faults{})

	a, s := setup(t, copier.FIG, dev, transfer.Write)
	require.NoError(t, a.WriteSRAM(context.Background(), s, image(save)))
	assert.Equal(t, save, dev.SRAM)

	a, s = setup(t, copier.FIG, dev, transfer.Read)
	var buf bytes.Buffer
	n, err := a.ReadSRAM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(protocol.FIGSRAMSize), n)
	assert.Equal(t, save, buf.Bytes())

	a, s = setup(t, copier.FIG, dev, transfer.Write)
	assert.True(t, protocol.IsSizeError(a.WriteSRAM(context.Background(), s, image(make([]byte, 0x8001)))))
}

func TestSMCWriteROM(t *testing.T) {
	header := make([]byte, protocol.SMCHeaderSize)
	header[3], header[4], header[7] = 2, 1, 0xAA
	body := pattern(0x6000)

	dev := simulator.NewSMC(simulator.Faults{})
	a, s := setup(t, copier.SMC, dev, transfer.Write)

	img := image(body)
	img.Header = header
	require.NoError(t, a.WriteROM(context.Background(), s, img))
	assert.Equal(t, body[:0x4000], dev.PRG)
	assert.Equal(t, body[0x4000:], dev.CHR)
	assert.Equal(t, header[:protocol.SMCModeLen], dev.Mode())
	assert.Equal(t, byte(protocol.SMCModeValue), dev.Regs[protocol.SMCRegMode])
	assert.True(t, dev.Started)
}

func TestSMCWriteROMShortImage(t *testing.T) {
	header := make([]byte, protocol.SMCHeaderSize)
	header[3], header[7] = 4, 0xAA

	dev := simulator.NewSMC(simulator.Faults{})
	a, s := setup(t, copier.SMC, dev, transfer.Write)

	img := image(pattern(0x6000))
	img.Header = header
	assert.True(t, protocol.IsSizeError(a.WriteROM(context.Background(), s, img)))
	assert.False(t, dev.Started)
}

func TestSMCReadROMUnsupported(t *testing.T) {
	a, s := setup(t, copier.SMC, simulator.NewSMC(simulator.Faults{}), transfer.Read)
	assert.False(t, a.Supports(copier.ReadROM))

	_, err := a.ReadROM(context.Background(), s, &bytes.Buffer{})
	assert.ErrorIs(t, err, protocol.ErrUnsupported)
}

func TestSMCSRAMRoundTrip(t *testing.T) {
	save := pattern(protocol.SMCSRAMSize)
	dev := simulator.NewSMC(simulator.Faults{})

	a, s := setup(t, copier.SMC, dev, transfer.Write)
	require.NoError(t, a.WriteSRAM(context.Background(), s, image(save)))
	assert.Equal(t, save, dev.SRAM)

	a, s = setup(t, copier.SMC, dev, transfer.Read)
	var buf bytes.Buffer
	_, err := a.ReadSRAM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, save, buf.Bytes())
}

func gdImage(body []byte, sizes ...int64) copier.Image {
	img := image(body)
	for i, n := range sizes {
		img.Parts = append(img.Parts, copier.Part{Name: "SF1GAME" + string(rune('A'+i)) + ".078", Size: n})
	}
	return img
}

func TestGD6ROMRoundTrip(t *testing.T) {
	body := pattern(0x4800)
	dev := simulator.NewGD(6, simulator.Faults{})

	a, s := setup(t, copier.GD6, dev, transfer.Write)
	require.NoError(t, a.WriteROM(context.Background(), s, gdImage(body, 0x3000, 0x1800)))
	require.Len(t, dev.ROM, 2)
	assert.Equal(t, "SF1GAMEA.078", dev.ROM[0].Name)
	assert.Equal(t, "SF1GAMEB.078", dev.ROM[1].Name)
	assert.Equal(t, body, dev.Image())
	assert.Equal(t, 1, dev.Sessions)

	a, s = setup(t, copier.GD6, dev, transfer.Read)
	var buf bytes.Buffer
	n, err := a.ReadROM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, int64(len(body)), s.Total)
	assert.Equal(t, body, buf.Bytes())
	assert.Equal(t, 2, dev.Sessions)
}

func TestGD6WriteROMRecoversFromDroppedByte(t *testing.T) {
	// the prolog takes 22 exchanges and a block header 8, so both drops
	// fall inside the first block and leave STROBE at either level
	for _, dropAt := range []int{60, 61} {
		t.Run(fmt.Sprintf("exchange %d", dropAt), func(t *testing.T) {
			body := pattern(0x3000)
			dev := simulator.NewGD(6, simulator.Faults{DropAt: dropAt})

			a, s := setup(t, copier.GD6, dev, transfer.Write)
			require.NoError(t, a.WriteROM(context.Background(), s, gdImage(body, 0x3000)))
			assert.Equal(t, body, dev.Image())
			assert.Equal(t, 1, s.Retries())
			assert.Equal(t, 2, dev.Syncs)
		})
	}
}

// infoLog records Info messages.
type infoLog struct {
	infos []string
}

func (l *infoLog) Debug(string, ...interface{}) {}
func (l *infoLog) Info(msg string, kv ...interface{}) {
	l.infos = append(l.infos, msg)
}
func (l *infoLog) Error(string, ...interface{}) {}

func TestGD6SyncRetriesAreReported(t *testing.T) {
	body := pattern(0x2000)
	dev := simulator.NewGD(6, simulator.Faults{RefuseSyncs: 3})
	log := &infoLog{}
	var events []transfer.Progress

	a, s := setup(t, copier.GD6, dev, transfer.Write,
		transfer.WithLogger(log),
		transfer.WithProgressCallback(func(p transfer.Progress) {
			events = append(events, p)
		}),
	)
	require.NoError(t, a.WriteROM(context.Background(), s, gdImage(body, 0x2000)))
	assert.Equal(t, body, dev.Image())

	assert.Equal(t, 3, s.SyncRetries)
	assert.Zero(t, s.Retries())
	assert.Equal(t, 3, countOf(log.infos, "sync retry"))

	require.NotEmpty(t, events)
	assert.Equal(t, 3, events[len(events)-1].Resyncs)
	var seen []int
	for _, e := range events[:3] {
		seen = append(seen, e.Resyncs)
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func countOf(msgs []string, msg string) int {
	n := 0
	for _, m := range msgs {
		if m == msg {
			n++
		}
	}
	return n
}

func TestGD6SyncFailureIsFatal(t *testing.T) {
	dev := simulator.NewGD(6, simulator.Faults{RefuseSyncs: 100})
	a, s := setup(t, copier.GD6, dev, transfer.Read)

	_, err := a.ReadROM(context.Background(), s, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, protocol.IsSyncTimeout(err))
	assert.True(t, protocol.IsFatal(err))
	assert.Zero(t, dev.Syncs)
}

func TestGD6ReadROMEmpty(t *testing.T) {
	a, s := setup(t, copier.GD6, simulator.NewGD(6, simulator.Faults{}), transfer.Read)
	_, err := a.ReadROM(context.Background(), s, &bytes.Buffer{})
	assert.True(t, protocol.IsSizeError(err))
}

func TestGDWriteROMRejectsBadPlan(t *testing.T) {
	dev := simulator.NewGD(6, simulator.Faults{})
	a, s := setup(t, copier.GD6, dev, transfer.Write)

	err := a.WriteROM(context.Background(), s, gdImage(pattern(0x100), 0x80))
	assert.True(t, protocol.IsSizeError(err))
	assert.Zero(t, dev.Syncs)
}

func TestGD3WriteROMSplitsUnits(t *testing.T) {
	body := pattern(0x2100)
	dev := simulator.NewGD(3, simulator.Faults{})

	a, s := setup(t, copier.GD3, dev, transfer.Write)
	require.NoError(t, a.WriteROM(context.Background(), s, image(body)))
	require.Len(t, dev.ROM, 1)
	assert.Equal(t, "ROMA", dev.ROM[0].Name)
	assert.Equal(t, body, dev.Image())

	_, err := a.ReadROM(context.Background(), s, &bytes.Buffer{})
	assert.ErrorIs(t, err, protocol.ErrUnsupported)
}

func TestGDSRAMRoundTrip(t *testing.T) {
	for _, gen := range []struct {
		family copier.Family
		n      int
	}{{copier.GD3, 3}, {copier.GD6, 6}} {
		t.Run(string(gen.family), func(t *testing.T) {
			save := pattern(0x800)
			dev := simulator.NewGD(gen.n, simulator.Faults{})

			a, s := setup(t, gen.family, dev, transfer.Write)
			require.NoError(t, a.WriteSRAM(context.Background(), s, image(save)))
			assert.Equal(t, save, dev.SRAM)

			a, s = setup(t, gen.family, dev, transfer.Read)
			var buf bytes.Buffer
			n, err := a.ReadSRAM(context.Background(), s, &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(len(save)), n)
			assert.Equal(t, save, buf.Bytes())
		})
	}
}

func TestSuperFlashROMRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		hirom bool
		base  int
	}{
		{name: "lorom", hirom: false, base: 0x8000},
		{name: "hirom", hirom: true, base: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom := snesROM(0x20000, tt.hirom, 0x07, 0)
			// a blank page is skipped but still erased
			for i := 0x100; i < 0x140; i++ {
				rom[i] = 0xFF
			}
			dev := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{})

			a, s := setup(t, copier.SuperFlash, dev, transfer.Write)
			img := image(rom)
			img.HiROM = tt.hirom
			require.NoError(t, a.WriteROM(context.Background(), s, img))
			assert.Less(t, dev.Programs, len(rom)/protocol.FlashPageSize)
			assert.Equal(t, rom[:0x8000], dev.Mem[tt.base:tt.base+0x8000])

			a, s = setup(t, copier.SuperFlash, dev, transfer.Read)
			var buf bytes.Buffer
			n, err := a.ReadROM(context.Background(), s, &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(len(rom)), n)
			assert.True(t, bytes.Equal(rom, buf.Bytes()))
		})
	}
}

func TestSuperFlashLoROMErasesTouchedBlocks(t *testing.T) {
	rom := snesROM(0x20000, false, 0x07, 0)
	dev := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{})
	dev.Load(0, []byte{0x12})

	a, s := setup(t, copier.SuperFlash, dev, transfer.Write)
	require.NoError(t, a.WriteROM(context.Background(), s, image(rom)))

	// LoROM 128 KB spans flash 0x08000-0x3FFFF, two 128 KB blocks
	assert.Equal(t, 2, dev.Erases)
	assert.Equal(t, byte(0xFF), dev.Mem[0])
}

func TestSuperFlashEraseFailure(t *testing.T) {
	dev := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{FailErase: 1})
	a, s := setup(t, copier.SuperFlash, dev, transfer.Write)

	err := a.WriteROM(context.Background(), s, image(pattern(0x1000)))
	var fe *protocol.FlashError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, s.Retries())
	assert.Zero(t, dev.Programs)
}

func TestSuperFlashSRAM(t *testing.T) {
	rom := snesROM(0x20000, false, 0x07, 0x05)
	dev := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{})
	dev.Load(0x8000, rom[:0x8000])
	copy(dev.SRAM, pattern(0x8000))

	a, s := setup(t, copier.SuperFlash, dev, transfer.Read)
	var buf bytes.Buffer
	n, err := a.ReadSRAM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(0x8000), n)
	assert.Equal(t, pattern(0x8000), buf.Bytes())

	save := make([]byte, 0x8000)
	for i := range save {
		save[i] = byte(i >> 3)
	}
	a, s = setup(t, copier.SuperFlash, dev, transfer.Write)
	require.NoError(t, a.WriteSRAM(context.Background(), s, image(save)))
	assert.Equal(t, save, dev.SRAM)
}

func TestSuperFlashSRAMMissing(t *testing.T) {
	rom := snesROM(0x20000, false, 0x07, 0)
	dev := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{})
	dev.Load(0x8000, rom[:0x8000])

	a, s := setup(t, copier.SuperFlash, dev, transfer.Read)
	_, err := a.ReadSRAM(context.Background(), s, &bytes.Buffer{})
	assert.True(t, protocol.IsSizeError(err))
}

func TestToToTekROM(t *testing.T) {
	chip := protocol.FlashChips[3]
	data := pattern(0x300)
	dev := simulator.NewFlash(chip, 0, simulator.Faults{})

	a, s := setup(t, copier.ToToTek, dev, transfer.Write)
	require.NoError(t, a.WriteROM(context.Background(), s, image(data)))
	assert.Equal(t, data, dev.Mem[:len(data)])
	assert.Equal(t, 1, dev.Erases)

	a, s = setup(t, copier.ToToTek, dev, transfer.Read)
	var buf bytes.Buffer
	n, err := a.ReadROM(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(chip.Size), n)
	assert.Equal(t, data, buf.Bytes()[:len(data)])
	assert.Equal(t, byte(0xFF), buf.Bytes()[len(data)])

	a, s = setup(t, copier.ToToTek, dev, transfer.Write)
	err = a.WriteROM(context.Background(), s, copier.Image{Size: int64(chip.Size) + 1})
	assert.True(t, protocol.IsSizeError(err))

	a, s = setup(t, copier.ToToTek, dev, transfer.Read)
	_, err = a.ReadSRAM(context.Background(), s, &bytes.Buffer{})
	assert.True(t, errors.Is(err, protocol.ErrUnsupported))
}

func TestProbe(t *testing.T) {
	lorom := snesROM(0x20000, false, 0x07, 0x03)
	flash := simulator.NewFlash(protocol.FlashChips[0], 0x8000, simulator.Faults{})
	flash.Load(0x8000, lorom[:0x8000])

	tests := []struct {
		name   string
		family copier.Family
		dev    port.Port
		want   copier.ProbeResult
	}{
		{
			name:   "fig hirom",
			family: copier.FIG,
			dev:    simulator.NewFIG(snesROM(0x40000, true, 0x08, 0), true, simulator.Faults{}),
			want:   copier.ProbeResult{HiROM: true, ROMSize: 0x40000},
		},
		{
			name:   "super flash",
			family: copier.SuperFlash,
			dev:    flash,
			want: copier.ProbeResult{
				ROMSize:  0x20000,
				Chip:     protocol.FlashChips[0].Name,
				ChipSize: int64(protocol.FlashChips[0].Size),
				SRAMSize: 0x2000,
			},
		},
		{
			name:   "tototek",
			family: copier.ToToTek,
			dev:    simulator.NewFlash(protocol.FlashChips[3], 0, simulator.Faults{}),
			want: copier.ProbeResult{
				HiROM:    true,
				Chip:     protocol.FlashChips[3].Name,
				ChipSize: int64(protocol.FlashChips[3].Size),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, s := setup(t, tt.family, tt.dev, transfer.Read)
			p, ok := a.(copier.Prober)
			require.True(t, ok)

			got, err := p.Probe(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, protocol.Finalizing, s.State)
		})
	}
}

func TestProbeNotOfferedByGD(t *testing.T) {
	a, _ := setup(t, copier.GD6, simulator.NewGD(6, simulator.Faults{}), transfer.Read)
	_, ok := a.(copier.Prober)
	assert.False(t, ok)
}
