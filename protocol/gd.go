package protocol

import (
	"fmt"

	"github.com/moffa90/go-copier/port"
)

// GD3 is the Game Doctor SF3 link: a plain busy/ready handshake with a
// STROBE pulse per byte. Received bytes are read as two nibbles, AUTOFEED
// selecting the high one.
type GD3 struct {
	port   port.Port
	poll   PollBudget
	settle int
}

// NewGD3 creates an SF3 link on p.
func NewGD3(p port.Port, poll PollBudget, settle int) *GD3 {
	p.WriteReg(port.Control, port.ControlInit)
	return &GD3{port: p, poll: poll, settle: settle}
}

func (g *GD3) waitReady(op string) (byte, error) {
	return g.poll.Wait(g.port, op, func(status byte) bool {
		return status&port.StatusBusy != 0
	})
}

// SendByte implements ByteLink.
func (g *GD3) SendByte(b byte) error {
	if _, err := g.waitReady("gd3 send"); err != nil {
		return err
	}
	g.port.WriteReg(port.Data, b)
	g.port.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	g.port.WriteReg(port.Control, port.ControlInit)
	return nil
}

// ReceiveByte implements ByteLink.
func (g *GD3) ReceiveByte() (byte, error) {
	status, err := g.waitReady("gd3 receive")
	if err != nil {
		return 0, err
	}
	lo := port.Nibble(status)

	g.port.WriteReg(port.Control, port.ControlInit|port.ControlAutoFeed)
	hi := port.Nibble(g.port.ReadReg(port.Status))

	// a strobe with AUTOFEED low advances to the next byte
	g.port.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	g.port.WriteReg(port.Control, port.ControlInit)
	return hi<<4 | lo, nil
}

// Resync pulses nInit.
func (g *GD3) Resync() error {
	g.port.WriteReg(port.Control, 0)
	port.Delay(g.port, g.settle)
	g.port.WriteReg(port.Control, port.ControlInit)

	if _, err := g.waitReady("gd3 resync"); err != nil {
		return &SyncTimeoutError{Operation: "gd3 resync", Attempts: int(g.poll), Fatal: true, Err: err}
	}
	return nil
}

// GD6 is the Game Doctor SF6/SF7 link. Every byte exchange flips a toggle
// bit carried on STROBE; the copier mirrors it on BUSY once it has handled
// the byte. The link must be resynchronised before every session.
type GD6 struct {
	port     port.Port
	poll     PollBudget
	attempts int
	toggle   byte
	strobe   byte
	retries  int
	onRetry  func(attempt int, err error)
}

// NewGD6 creates an SF6/SF7 link on p. attempts bounds the resync loop.
func NewGD6(p port.Port, poll PollBudget, attempts int) *GD6 {
	if attempts <= 0 {
		attempts = DefaultSyncAttempts
	}
	return &GD6{port: p, poll: poll, attempts: attempts}
}

// OnRetry registers fn to be called after each failed resync attempt.
func (g *GD6) OnRetry(fn func(attempt int, err error)) {
	g.onRetry = fn
}

// Toggle returns the current toggle bit.
func (g *GD6) Toggle() byte {
	return g.toggle
}

// SyncRetries returns the number of failed resync attempts so far.
func (g *GD6) SyncRetries() int {
	return g.retries
}

// control writes the control register and records the STROBE level driven.
func (g *GD6) control(v byte) {
	g.strobe = v & port.ControlStrobe
	g.port.WriteReg(port.Control, v)
}

func (g *GD6) waitToggle(op string, want byte) (byte, error) {
	return g.poll.Wait(g.port, op, func(status byte) bool {
		return (status>>7)&1 == want
	})
}

// SendByte implements ByteLink. The toggle only advances once the copier has
// acknowledged the byte.
func (g *GD6) SendByte(b byte) error {
	next := g.toggle ^ 1
	g.port.WriteReg(port.Data, b)
	g.control(port.ControlInit | next)
	if _, err := g.waitToggle("gd6 send", next); err != nil {
		return err
	}
	g.toggle = next
	return nil
}

// ReceiveByte implements ByteLink. Flipping the toggle requests the next
// byte; AUTOFEED then selects its high nibble.
func (g *GD6) ReceiveByte() (byte, error) {
	next := g.toggle ^ 1
	g.control(port.ControlInit | next)
	status, err := g.waitToggle("gd6 receive", next)
	if err != nil {
		return 0, err
	}
	lo := port.Nibble(status)

	g.control(port.ControlInit | port.ControlAutoFeed | next)
	hi := port.Nibble(g.port.ReadReg(port.Status))
	g.control(port.ControlInit | next)

	g.toggle = next
	return hi<<4 | lo, nil
}

// Resync runs the SF6 synchronisation sequence until the copier acknowledges
// it or the attempt bound is reached. The toggle and the STROBE line both
// restart at 0, so the next byte raises STROBE.
func (g *GD6) Resync() error {
	var last error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if last = g.syncOnce(); last == nil {
			return nil
		}
		g.retries++
		if g.onRetry != nil {
			g.onRetry(attempt, last)
		}
	}
	return &SyncTimeoutError{Operation: "gd6 resync", Attempts: g.attempts, Fatal: true, Err: last}
}

// syncOnce runs one synchronisation attempt. STROBE only moves while
// AUTOFEED is raised, so the sequence itself is never taken for a byte.
func (g *GD6) syncOnce() error {
	g.control(port.ControlInit | g.strobe)
	g.port.WriteReg(port.Data, 0)
	for i := 0; i < GDSyncPreamble; i++ {
		g.port.WriteReg(port.Data, byte(i))
	}

	g.control(port.ControlInit | port.ControlAutoFeed | g.strobe)
	g.control(port.ControlInit | port.ControlAutoFeed)
	g.toggle = 0
	g.port.WriteReg(port.Data, GDSyncSentinel1)
	g.port.WriteReg(port.Data, GDSyncSentinel2)

	if _, err := g.poll.Wait(g.port, "gd6 sync ack", func(status byte) bool {
		return status&GDSyncAck != 0
	}); err != nil {
		return err
	}

	g.control(port.ControlInit)
	if _, err := g.poll.Wait(g.port, "gd6 sync release", func(status byte) bool {
		return status&GDSyncAck == 0
	}); err != nil {
		return err
	}
	return nil
}

// GDCommander runs the Game Doctor command layer over a ByteLink.
type GDCommander struct {
	link  ByteLink
	magic GDMagic
}

// NewGDCommander creates a command layer speaking magic over link.
func NewGDCommander(link ByteLink, magic GDMagic) *GDCommander {
	return &GDCommander{link: link, magic: magic}
}

// Link returns the underlying byte link.
func (c *GDCommander) Link() ByteLink {
	return c.link
}

func (c *GDCommander) send(data []byte) error {
	for _, b := range data {
		if err := c.link.SendByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *GDCommander) receive(buf []byte) error {
	for i := range buf {
		b, err := c.link.ReceiveByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// BeginWrite opens a write session declaring units.
func (c *GDCommander) BeginWrite(kind byte, units []GDUnit) error {
	frame, err := BuildGDWriteProlog(c.magic, kind, units)
	if err != nil {
		return err
	}
	if err := c.send(frame); err != nil {
		return fmt.Errorf("write prolog: %w", err)
	}
	return nil
}

// BeginRead opens a read session.
func (c *GDCommander) BeginRead(kind byte) error {
	if err := c.send(BuildGDReadProlog(c.magic, kind)); err != nil {
		return fmt.Errorf("read prolog: %w", err)
	}
	return nil
}

// WriteBlock stores data at offset of unit.
func (c *GDCommander) WriteBlock(unit byte, offset uint32, data []byte) error {
	hdr, err := BuildGDBlockHeader(GDOpBlockWrite, unit, offset, len(data))
	if err != nil {
		return err
	}
	if err := c.send(hdr); err != nil {
		return err
	}
	return c.send(data)
}

// ReadBlock fills buf from offset of unit.
func (c *GDCommander) ReadBlock(unit byte, offset uint32, buf []byte) error {
	hdr, err := BuildGDBlockHeader(GDOpBlockRead, unit, offset, len(buf))
	if err != nil {
		return err
	}
	if err := c.send(hdr); err != nil {
		return err
	}
	return c.receive(buf)
}

// UnitInfo queries the name and size of unit.
func (c *GDCommander) UnitInfo(unit byte) (UnitInfo, error) {
	if err := c.send(BuildGDUnitInfo(unit)); err != nil {
		return UnitInfo{}, err
	}
	buf := make([]byte, GDUnitInfoSize)
	if err := c.receive(buf); err != nil {
		return UnitInfo{}, err
	}
	return ParseGDUnitInfo(buf)
}

// End closes the session.
func (c *GDCommander) End() error {
	return c.link.SendByte(GDOpEnd)
}
