package protocol

// Pro Fighter (FIG) address map. The FIG exposes its DRAM through 8 KB
// windows selected by FFECmdPage; everything outside the windows is a
// register.
const (
	// FIGBlockSize is the size of one DRAM page
	FIGBlockSize = 0x2000

	// FIGWriteWindow receives DRAM writes
	FIGWriteWindow = 0x8000

	// FIGLowWindow and FIGHighWindow expose DRAM for reading
	FIGLowWindow  = 0x2000
	FIGHighWindow = 0xA000

	// FIGPageROM is the first DRAM page; FIGPageHiROMLow is the first page
	// of the HiROM low-half counter
	FIGPageROM      = 0x200
	FIGPageHiROMLow = 0x300

	// FIGPageSRAM is the first SRAM page
	FIGPageSRAM = 0x100

	// FIGPageSRAMSelect is selected while switching the bus to save RAM
	FIGPageSRAMSelect = 0x003

	// FIGSRAMSize is the size of the FIG save RAM
	FIGSRAMSize = 0x8000

	// FIGHeaderProbe is where page 0 mirrors the cartridge's internal header
	FIGHeaderProbe = 0xBFC0

	// FIGMapProbe and FIGSizeProbe address the map mode and ROM size bytes
	// of the mirrored internal header
	FIGMapProbe  = FIGHeaderProbe + 0x15
	FIGSizeProbe = FIGHeaderProbe + 0x17

	// FIGBankSplit is the block count above which the second DRAM bank is used
	FIGBankSplit = 0x200
)

// FIG registers.
const (
	FIGRegBank   = 0xC010
	FIGRegDRAM   = 0xC008
	FIGRegHiROM  = 0xC016
	FIGRegEmu1   = 0xC014
	FIGRegEmu2   = 0xC015
	FIGRegReset  = 0xE00C
	FIGRegCart   = 0xE003
	FIGRegSRAM   = 0xE00D

	// FIGExecMode is the low byte of the start command address
	FIGExecMode = 0x05
)

// Super Magic Card (SMC) address map. PRG and CHR banks are written through
// one 8 KB window; save RAM sits at the NES work RAM window.
const (
	SMCBlockSize  = 0x2000
	SMCWindow     = 0x8000
	SMCPagePRG    = 0x00
	SMCPageCHR    = 0x20
	SMCSRAMWindow = 0x6000
	SMCSRAMSize   = 0x2000
	SMCSRAMChunk  = 0x400

	// SMCModeBlock receives the first SMCModeLen bytes of the copier header
	SMCModeBlock = 0x4300
	SMCModeLen   = 8
)

// SMC registers.
const (
	SMCRegMode    = 0x4500
	SMCRegDRAM    = 0x42FF
	SMCRegSRAM    = 0x2001
	SMCModeValue  = 0x32
	SMCDRAMValue  = 0x30
	SMCExecAddr   = 0x0001
	SMCHeaderSize = 512
)

// SMCPRGBlocks and SMCCHRBlocks decode the size bits of header byte 1.
var (
	SMCPRGBlocks = [4]int{4, 8, 16, 32}
	SMCCHRBlocks = [4]int{0, 2, 4, 8}
)

// Flash cartridge layout shared by Super Flash and ToToTek programmers.
const (
	// FlashChunk is the transfer unit of flash reads and writes
	FlashChunk = 0x100

	// FlashHeaderProbe is the flash address of the internal SNES header
	FlashHeaderProbe = 0xFFC0

	// FlashSRAMMax caps the save RAM of a flash cartridge
	FlashSRAMMax = 0x20000
)

// Game Doctor layout.
const (
	GDChunk       = 0x2000
	GDSRAMMax     = 0x20000
	GDSRAMName    = "SRAM.B00"
	GDUnitSuffix  = ".078"
	GDNamePrefix  = "SF"
	GDBaseNameLen = 8
)
