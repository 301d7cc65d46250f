package simulator

import (
	"testing"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ackBit(d *GD) byte {
	return d.ReadReg(port.Status) >> 7
}

// syncKeepingStrobe runs the SF6 sync sequence without moving STROBE.
func syncKeepingStrobe(d *GD, strobe byte) {
	d.WriteReg(port.Control, port.ControlInit|strobe)
	for i := 0; i < protocol.GDSyncPreamble; i++ {
		d.WriteReg(port.Data, byte(i))
	}
	d.WriteReg(port.Control, port.ControlInit|port.ControlAutoFeed|strobe)
	d.WriteReg(port.Data, protocol.GDSyncSentinel1)
	d.WriteReg(port.Data, protocol.GDSyncSentinel2)
	d.WriteReg(port.Control, port.ControlInit|strobe)
}

func TestGD6AcksOnlyStrobeEdges(t *testing.T) {
	d := NewGD(6, Faults{})

	d.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	assert.Equal(t, byte(1), ackBit(d))
	assert.Equal(t, 1, d.inj.exchanges)

	d.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	assert.Equal(t, 1, d.inj.exchanges, "same level is not an exchange")

	d.WriteReg(port.Control, port.ControlInit|port.ControlAutoFeed)
	assert.Equal(t, 1, d.inj.exchanges, "edges under AUTOFEED are not exchanges")
	assert.Equal(t, byte(1), ackBit(d))
}

func TestGD6NeedsEdgeAfterSync(t *testing.T) {
	d := NewGD(6, Faults{})
	d.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	require.Equal(t, byte(1), ackBit(d))

	syncKeepingStrobe(d, port.ControlStrobe)
	require.Equal(t, 1, d.Syncs)
	assert.Equal(t, byte(0), ackBit(d))

	// STROBE is still high, so raising it again is no byte
	d.WriteReg(port.Control, port.ControlInit|port.ControlStrobe)
	assert.Equal(t, byte(0), ackBit(d))
}

func TestGD6LinkResyncFromOddParity(t *testing.T) {
	d := NewGD(6, Faults{})
	link := protocol.NewGD6(d, 64, 4)
	require.NoError(t, link.Resync())
	require.NoError(t, link.SendByte('G'))
	require.Equal(t, byte(1), link.Toggle())

	require.NoError(t, link.Resync())
	assert.Equal(t, 2, d.Syncs)
	assert.Equal(t, byte(0), d.line)

	require.NoError(t, link.SendByte('G'))
	assert.Equal(t, 2, d.inj.exchanges)
	assert.Equal(t, byte(1), d.line)
}
