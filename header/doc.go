// Package header reads and writes the 512-byte headers copier tools put in
// front of ROM images.
//
// # Formats
//
// FIG (Pro Fighter):
//
//	[0..1] size in 8 KB blocks, little-endian
//	[2]    0x40 on all but the last file of a split image
//	[3]    0x80 for HiROM
//	[4..5] emulation mode bytes
//
// SWC (Super Wild Card and other FFE copiers):
//
//	[0..1] size in 8 KB blocks, little-endian
//	[2]    mode: 0x40 split, 0x30 HiROM
//	[8..9] 0xAA 0xBB
//	[10]   file type, 4 for SNES
//
// SMC (Super Magic Card, NES): bank sizes are either explicit (byte 7 is
// 0xAA, PRG in byte 3, CHR in byte 4) or encoded in mode bits of bytes 0
// and 1; file type 8 identifies NES FFE headers.
//
// # Usage
//
//	if header.HasHeader(fi.Size()) {
//	    h, err := header.ParseReader(f)
//	    ...
//	}
//
// A raw dump has no header. Fixer builds one, picking the mapping from the
// internal SNES header:
//
//	hdr, err := header.Fixer{}.Fix(dump, size)
package header
