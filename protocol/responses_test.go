package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildUnitInfo(name string, size uint32) []byte {
	n := PadName(name)
	return binary.LittleEndian.AppendUint32(n[:], size)
}

func TestParseGDUnitInfo(t *testing.T) {
	info, err := ParseGDUnitInfo(buildUnitInfo("SF16MARA.078", 0x100000))
	require.NoError(t, err)
	assert.Equal(t, "SF16MARA.078", info.Name)
	assert.Equal(t, uint32(0x100000), info.Size)

	info, err = ParseGDUnitInfo(buildUnitInfo("", 0))
	require.NoError(t, err)
	assert.Empty(t, info.Name)
	assert.Zero(t, info.Size)

	_, err = ParseGDUnitInfo(buildUnitInfo("HUGE", GDUnitLimit+1))
	assert.True(t, IsSizeError(err))

	_, err = ParseGDUnitInfo([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCheckFlashStatus(t *testing.T) {
	assert.NoError(t, CheckFlashStatus("erase", 0, FlashStatusReady))

	err := CheckFlashStatus("erase", 0x10000, FlashStatusReady|FlashStatusEraseErr)
	var fe *FlashError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, uint32(0x10000), fe.Address)
	assert.Contains(t, err.Error(), "erase error")

	err = CheckFlashStatus("program", 0, FlashStatusReady|FlashStatusVppErr)
	assert.Contains(t, err.Error(), "voltage")
}

func TestLookupChip(t *testing.T) {
	chip, ok := LookupChip(0xB0, 0xD0)
	require.True(t, ok)
	assert.Equal(t, 2<<20, chip.Size)
	assert.Equal(t, 0x10000, chip.BlockSize)

	_, ok = LookupChip(0x01, 0x02)
	assert.False(t, ok)
}
