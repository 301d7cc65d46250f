package protocol

// Front Far East (FFE) command frame, used by the Pro Fighter (FIG) and the
// Super Magic Card (SMC).
//
// Frame structure:
//
//	[D5][AA][96][CMD][ADDR_L][ADDR_H][LEN_L][LEN_H][CHECKSUM]
const (
	// FFEPreamble0..2 open every command frame
	FFEPreamble0 = 0xD5
	FFEPreamble1 = 0xAA
	FFEPreamble2 = 0x96

	// FFEChecksumSeed is XORed into every FFE checksum
	FFEChecksumSeed = 0x81

	// FFEFrameSize is the size of a complete command frame
	FFEFrameSize = 9
)

// FFE command codes.
const (
	// FFECmdWrite writes LEN bytes at ADDR, followed by a checksum byte
	FFECmdWrite = 0x00

	// FFECmdRead reads LEN bytes from ADDR, followed by a checksum byte
	FFECmdRead = 0x01

	// FFECmdPage selects the 8 KB page mapped into the address windows (ADDR = page)
	FFECmdPage = 0x05

	// FFECmdExec starts the loaded program
	FFECmdExec = 0x06
)

// Game Doctor command vocabulary. SF3 and SF6/SF7 share the command layer
// and differ only in the byte exchange underneath it.
const (
	// GDKindROM selects DRAM units holding a ROM image
	GDKindROM = 0x00

	// GDKindSRAM selects the battery backed save RAM
	GDKindSRAM = 0x01

	// GDOpBlockWrite is followed by UNIT(1) OFFSET(4) LEN(2) DATA(LEN)
	GDOpBlockWrite = 0x01

	// GDOpUnitInfo is followed by UNIT(1); the reply is NAME(12) SIZE(4)
	GDOpUnitInfo = 0x02

	// GDOpBlockRead is followed by UNIT(1) OFFSET(4) LEN(2); the reply is DATA(LEN)
	GDOpBlockRead = 0x03

	// GDOpEnd closes the session
	GDOpEnd = 0xFF

	// GDNameLen is the size of a unit name (8.3 without padding dot rules)
	GDNameLen = 12

	// GDUnitInfoSize is the size of a UnitInfo reply
	GDUnitInfoSize = GDNameLen + 4

	// GDUnitLimit caps a DRAM unit at 8 Mbit
	GDUnitLimit = 0x100000

	// GDMaxBlock is the largest block a single BlockWrite/BlockRead may carry
	GDMaxBlock = 0xFFFF
)

// GD6 resynchronisation sequence.
const (
	// GDSyncSentinel1 and GDSyncSentinel2 are written with AUTOFEED raised
	GDSyncSentinel1 = 0xAA
	GDSyncSentinel2 = 0x55

	// GDSyncAck is the status bit raised by the copier while the sync is acknowledged
	GDSyncAck = 0x08

	// GDSyncPreamble is the number of counting bytes written before the sentinels
	GDSyncPreamble = 8
)

// GDMagic holds the 4-byte session prologs of one Game Doctor generation.
type GDMagic struct {
	Write [4]byte
	Read  [4]byte
}

// Session prologs per Game Doctor generation.
var (
	GD3Magic = GDMagic{Write: [4]byte{'G', 'D', '3', 'W'}, Read: [4]byte{'G', 'D', '3', 'R'}}
	GD6Magic = GDMagic{Write: [4]byte{'G', 'D', '6', 'W'}, Read: [4]byte{'G', 'D', '6', 'R'}}
)

// ToToTek EPP address indexes. The copier decodes the EPP address cycle as
// an index into a small register file.
const (
	// TTTAddrLow..TTTAddrHigh hold the 24-bit cartridge bus address
	TTTAddrLow  = 0x00
	TTTAddrMid  = 0x01
	TTTAddrHigh = 0x02

	// TTTDataPort accesses the bus at the current address and post-increments it
	TTTDataPort = 0x03

	// TTTMode selects what the bus is connected to
	TTTMode = 0x04
)

// ToToTek mode register values.
const (
	TTTModeOff   = 0x00
	TTTModeFlash = 0x80
	TTTModeSRAM  = 0x40
)

// Flash command set (Intel/Sharp command user interface).
const (
	FlashReadArray   = 0xFF
	FlashReadID      = 0x90
	FlashReadStatus  = 0x70
	FlashClearStatus = 0x50
	FlashBlockErase  = 0x20
	FlashConfirm     = 0xD0
	FlashWriteBuffer = 0xE8
)

// Flash status register bits.
const (
	FlashStatusReady      = 0x80
	FlashStatusEraseErr   = 0x20
	FlashStatusProgramErr = 0x10
	FlashStatusVppErr     = 0x08

	// FlashStatusErrors masks every error bit
	FlashStatusErrors = FlashStatusEraseErr | FlashStatusProgramErr | FlashStatusVppErr
)

// FlashPageSize is the size of the flash write buffer.
const FlashPageSize = 32

// FlashChips lists the flash parts found on ToToTek-based cartridges.
var FlashChips = []FlashChip{
	{Maker: 0x89, Device: 0x16, Name: "Intel 28F320J3", Size: 4 << 20, BlockSize: 0x20000},
	{Maker: 0x89, Device: 0x17, Name: "Intel 28F640J3", Size: 8 << 20, BlockSize: 0x20000},
	{Maker: 0x89, Device: 0x18, Name: "Intel 28F128J3", Size: 16 << 20, BlockSize: 0x20000},
	{Maker: 0xB0, Device: 0xD0, Name: "Sharp LH28F160S3", Size: 2 << 20, BlockSize: 0x10000},
	{Maker: 0xB0, Device: 0xD4, Name: "Sharp LH28F320S3", Size: 4 << 20, BlockSize: 0x10000},
}

// Default poll budgets, in status reads. They were tuned on ISA ports and are
// meant to be overridden for slower or faster adapters.
const (
	DefaultFFEPoll = 0x80000
	DefaultGDPoll  = 0x100000
	DefaultEPPPoll = 0x40000

	// DefaultSyncAttempts bounds the GD6 resynchronisation loop
	DefaultSyncAttempts = 16

	// DefaultRetries bounds the chunk retries of one session
	DefaultRetries = 16

	// DefaultSettleDelay is the pause after a resync pulse, in status reads
	DefaultSettleDelay = 0x1000
)
