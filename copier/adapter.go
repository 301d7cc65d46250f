package copier

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// Family identifies a copier family.
type Family string

// Supported copier families.
const (
	FIG        Family = "fig"
	GD3        Family = "gd3"
	GD6        Family = "gd6"
	SMC        Family = "smc"
	SuperFlash Family = "sflash"
	ToToTek    Family = "tototek"
)

// Operation is one of the four transfer operations.
type Operation int

// Transfer operations.
const (
	ReadROM Operation = iota
	WriteROM
	ReadSRAM
	WriteSRAM
)

func (o Operation) String() string {
	switch o {
	case ReadROM:
		return "read rom"
	case WriteROM:
		return "write rom"
	case ReadSRAM:
		return "read sram"
	case WriteSRAM:
		return "write sram"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// FamilyInfo describes a family's capabilities.
type FamilyInfo struct {
	Family      Family
	Description string
	Supports    [4]bool
	HeaderLen   int
	Chunk       int
}

// families lists every family with its capability row, in display order.
var families = []FamilyInfo{
	{FIG, "Pro Fighter (FIG)", [4]bool{true, true, true, true}, 512, protocol.FIGBlockSize},
	{GD3, "Game Doctor SF3", [4]bool{false, true, true, true}, 0, protocol.GDChunk},
	{GD6, "Game Doctor SF6/SF7", [4]bool{true, true, true, true}, 0, protocol.GDChunk},
	{SMC, "Super Magic Card", [4]bool{false, true, true, true}, protocol.SMCHeaderSize, protocol.SMCBlockSize},
	{SuperFlash, "Super Flash", [4]bool{true, true, true, true}, 0, protocol.FlashChunk},
	{ToToTek, "ToToTek flash programmer", [4]bool{true, true, false, false}, 0, protocol.FlashChunk},
}

// Families returns the capability table.
func Families() []FamilyInfo {
	return append([]FamilyInfo(nil), families...)
}

// Info returns the capability row of f.
func Info(f Family) (FamilyInfo, bool) {
	for _, fi := range families {
		if fi.Family == f {
			return fi, true
		}
	}
	return FamilyInfo{}, false
}

// ParseFamily resolves a family name, case-insensitively.
func ParseFamily(name string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := Info(f); !ok {
		return "", fmt.Errorf("unknown copier family %q", name)
	}
	return f, nil
}

// Part is one unit of a multi-part image.
type Part struct {
	// Name is the unit name the copier stores
	Name string

	// Size is the unit size in bytes
	Size int64
}

// Image is a source for a write operation.
type Image struct {
	// Header is the copier header, nil when the file has none
	Header []byte

	// Body yields Size bytes of payload
	Body io.Reader

	// Size is the payload size
	Size int64

	// HiROM is set for HiROM SNES images
	HiROM bool

	// Parts is the unit plan for copiers storing multiple units
	Parts []Part
}

// Adapter runs the four transfer operations for one copier family. An
// adapter is bound to one port and is used by one session at a time.
type Adapter interface {
	// Family returns the copier family.
	Family() Family

	// Supports reports whether op is available.
	Supports(op Operation) bool

	// HeaderLen is the size of the copier header a ROM file carries.
	HeaderLen() int

	// ReadROM dumps the ROM to w and returns the number of bytes written.
	ReadROM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error)

	// WriteROM uploads img.
	WriteROM(ctx context.Context, s *transfer.Session, img Image) error

	// ReadSRAM dumps the save RAM to w and returns the number of bytes written.
	ReadSRAM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error)

	// WriteSRAM uploads img as save RAM.
	WriteSRAM(ctx context.Context, s *transfer.Session, img Image) error
}

// New creates the adapter for family on p. The engine supplies poll
// budgets, logging and cancellation.
func New(family Family, p port.Port, eng *transfer.Engine) (Adapter, error) {
	if p == nil {
		return nil, &protocol.PortInitError{Port: string(family), Err: fmt.Errorf("port cannot be nil")}
	}
	if eng == nil {
		eng = transfer.New()
	}

	info, ok := Info(family)
	if !ok {
		return nil, fmt.Errorf("unknown copier family %q", family)
	}
	base := base{info: info, eng: eng, log: eng.Logger()}

	switch family {
	case FIG:
		return newFIG(base, p), nil
	case SMC:
		return newSMC(base, p), nil
	case GD3, GD6:
		return newGD(base, p), nil
	default:
		return newFlashCart(base, p), nil
	}
}

// base carries what every adapter shares.
type base struct {
	info FamilyInfo
	eng  *transfer.Engine
	log  transfer.Logger
}

func (b base) Family() Family {
	return b.info.Family
}

func (b base) Supports(op Operation) bool {
	if op < ReadROM || op > WriteSRAM {
		return false
	}
	return b.info.Supports[op]
}

func (b base) HeaderLen() int {
	return b.info.HeaderLen
}

func (b base) unsupported(op Operation) error {
	return fmt.Errorf("%s %s: %w", b.info.Family, op, protocol.ErrUnsupported)
}

// negotiate moves the session into the negotiating state.
func negotiate(s *transfer.Session) error {
	if s.State == protocol.Negotiating {
		return nil
	}
	return s.Enter(protocol.Negotiating)
}

// finalize moves the session into the finalizing state.
func finalize(s *transfer.Session) error {
	if s.State == protocol.Negotiating {
		if err := s.Enter(protocol.Transferring); err != nil {
			return err
		}
	}
	return s.Enter(protocol.Finalizing)
}

// isHiROM decodes the map mode byte of an SNES internal header.
func isHiROM(mapMode byte) bool {
	return (mapMode&1 != 0 && mapMode != 0x23) || mapMode == 0x3A
}

// romSize decodes the ROM size byte of an SNES internal header (log2 of the
// size in KB).
func romSize(op string, code byte) (int64, error) {
	if code < 7 || code > 0x0D {
		return 0, &protocol.ProtocolSizeError{
			Operation: op,
			Size:      int64(code),
			Reason:    "no cartridge or unknown ROM size code",
		}
	}
	return int64(1024) << code, nil
}
