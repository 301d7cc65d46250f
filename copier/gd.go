package copier

import (
	"context"
	"fmt"
	"io"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
)

// SplitParts cuts size bytes into units of at most limit bytes, naming
// each with name(i).
func SplitParts(size, limit int64, name func(i int) string) []Part {
	var parts []Part
	for off, i := int64(0), 0; off < size; i++ {
		n := limit
		if size-off < n {
			n = size - off
		}
		parts = append(parts, Part{Name: name(i), Size: n})
		off += n
	}
	return parts
}

// gd drives Game Doctor SF3 and SF6/SF7 copiers. Both speak the same command
// layer over different byte links.
type gd struct {
	base
	link protocol.ByteLink
	cmd  *protocol.GDCommander
	cur  *transfer.Session
}

func newGD(b base, p port.Port) *gd {
	polls := b.eng.Polls()
	g := &gd{base: b}
	if b.info.Family == GD3 {
		g.link = protocol.NewGD3(p, polls.GD, polls.Settle)
		g.cmd = protocol.NewGDCommander(g.link, protocol.GD3Magic)
		return g
	}

	link := protocol.NewGD6(p, polls.GD, protocol.DefaultSyncAttempts)
	link.OnRetry(func(attempt int, err error) {
		b.log.Info("sync retry", "attempt", attempt, "of", protocol.DefaultSyncAttempts, "error", err)
		if g.cur != nil {
			g.cur.SyncRetries++
			g.eng.ReportProgress(g.cur)
		}
	})
	g.link = link
	g.cmd = protocol.NewGDCommander(link, protocol.GD6Magic)
	return g
}

// open resynchronises the link and starts a session with start.
func (g *gd) open(s *transfer.Session, start func() error) error {
	if err := negotiate(s); err != nil {
		return err
	}
	g.cur = s
	if err := g.link.Resync(); err != nil {
		return err
	}
	return g.eng.Do(s, "gd prolog", g.link, start)
}

func (g *gd) close(s *transfer.Session) error {
	if err := finalize(s); err != nil {
		return err
	}
	return g.eng.Do(s, "gd end", g.link, g.cmd.End)
}

func (g *gd) unitMover(unit byte, send bool) transfer.Mover {
	return transfer.Funcs{
		MoveFunc: func(off int64, buf []byte) error {
			if send {
				return g.cmd.WriteBlock(unit, uint32(off), buf)
			}
			return g.cmd.ReadBlock(unit, uint32(off), buf)
		},
		ResyncFunc: g.link.Resync,
	}
}

// plan returns the unit table for img, splitting it when no plan is given.
func (g *gd) plan(img Image) ([]protocol.GDUnit, error) {
	parts := img.Parts
	if len(parts) == 0 {
		parts = SplitParts(img.Size, protocol.GDUnitLimit, func(i int) string {
			return fmt.Sprintf("ROM%c", 'A'+i)
		})
	}

	var sum int64
	units := make([]protocol.GDUnit, len(parts))
	for i, p := range parts {
		if p.Size <= 0 || p.Size > protocol.GDUnitLimit {
			return nil, &protocol.ProtocolSizeError{Operation: "gd plan", Size: p.Size, Reason: "unit size out of range"}
		}
		units[i] = protocol.GDUnit{Name: p.Name, Size: uint32(p.Size)}
		sum += p.Size
	}
	if sum != img.Size {
		return nil, &protocol.ProtocolSizeError{
			Operation: "gd plan",
			Size:      img.Size,
			Reason:    fmt.Sprintf("units cover %d bytes", sum),
		}
	}
	return units, nil
}

func (g *gd) ReadROM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if !g.Supports(ReadROM) {
		return 0, g.unsupported(ReadROM)
	}
	if err := g.open(s, func() error {
		return g.cmd.BeginRead(protocol.GDKindROM)
	}); err != nil {
		return 0, err
	}

	// units are only known one at a time, so the total grows as they appear
	var total int64
	for u := 0; u <= 0xFF; u++ {
		var info protocol.UnitInfo
		if err := g.eng.Do(s, "gd unit info", g.link, func() error {
			var err error
			info, err = g.cmd.UnitInfo(byte(u))
			return err
		}); err != nil {
			return total, err
		}
		if info.Size == 0 {
			break
		}

		g.log.Info("reading unit", "unit", u, "name", info.Name, "bytes", info.Size)
		s.Grow(int64(info.Size))
		if err := g.eng.Receive(ctx, s, w, int64(info.Size), protocol.GDChunk, g.unitMover(byte(u), false)); err != nil {
			return s.Done, err
		}
		total += int64(info.Size)
	}

	if total == 0 {
		return 0, &protocol.ProtocolSizeError{Operation: "gd read", Size: 0, Reason: "copier holds no ROM"}
	}
	return total, g.close(s)
}

func (g *gd) WriteROM(ctx context.Context, s *transfer.Session, img Image) error {
	units, err := g.plan(img)
	if err != nil {
		return err
	}
	if err := g.open(s, func() error {
		return g.cmd.BeginWrite(protocol.GDKindROM, units)
	}); err != nil {
		return err
	}
	s.Grow(img.Size)

	for i, u := range units {
		g.log.Debug("writing unit", "unit", i, "name", u.Name, "bytes", u.Size)
		if err := g.eng.Send(ctx, s, img.Body, int64(u.Size), protocol.GDChunk, g.unitMover(byte(i), true)); err != nil {
			return err
		}
	}
	return g.close(s)
}

func (g *gd) ReadSRAM(ctx context.Context, s *transfer.Session, w io.Writer) (int64, error) {
	if err := g.open(s, func() error {
		return g.cmd.BeginRead(protocol.GDKindSRAM)
	}); err != nil {
		return 0, err
	}

	var info protocol.UnitInfo
	if err := g.eng.Do(s, "gd sram info", g.link, func() error {
		var err error
		info, err = g.cmd.UnitInfo(0)
		return err
	}); err != nil {
		return 0, err
	}
	if info.Size == 0 {
		return 0, &protocol.ProtocolSizeError{Operation: "gd sram read", Size: 0, Reason: "copier holds no save RAM"}
	}
	if info.Size > protocol.GDSRAMMax {
		return 0, &protocol.ProtocolSizeError{Operation: "gd sram read", Size: int64(info.Size), Reason: "save RAM too large"}
	}
	s.Grow(int64(info.Size))

	if err := g.eng.Receive(ctx, s, w, int64(info.Size), protocol.GDChunk, g.unitMover(0, false)); err != nil {
		return s.Done, err
	}
	return int64(info.Size), g.close(s)
}

func (g *gd) WriteSRAM(ctx context.Context, s *transfer.Session, img Image) error {
	if img.Size <= 0 || img.Size > protocol.GDSRAMMax {
		return &protocol.ProtocolSizeError{Operation: "gd sram write", Size: img.Size, Reason: "save RAM size out of range"}
	}
	units := []protocol.GDUnit{{Name: protocol.GDSRAMName, Size: uint32(img.Size)}}
	if err := g.open(s, func() error {
		return g.cmd.BeginWrite(protocol.GDKindSRAM, units)
	}); err != nil {
		return err
	}
	s.Grow(img.Size)

	if err := g.eng.Send(ctx, s, img.Body, img.Size, protocol.GDChunk, g.unitMover(0, true)); err != nil {
		return err
	}
	return g.close(s)
}
