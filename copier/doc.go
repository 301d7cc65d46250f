// Package copier implements the per-family transfer adapters.
//
// An Adapter is created for one family on one port and runs the four
// transfer operations (ROM and save RAM, in both directions) through a
// transfer.Engine, which owns chunking, retries, progress and cancellation.
//
// # Families
//
//   - FIG: Pro Fighter, FFE frames over nibble-mode handshake
//   - SMC: Super Magic Card (NES), FFE frames; ROM dumps are not supported
//   - GD3: Game Doctor SF3, unit-based command layer over busy/strobe
//   - GD6: Game Doctor SF6/SF7, the same command layer over a toggle bit
//   - SuperFlash: flash cartridge on a ToToTek programmer with SNES mapping
//   - ToToTek: the bare programmer, linear flash only
//
// # Basic Usage
//
//	eng := transfer.New(transfer.WithProgressCallback(onProgress))
//	a, err := copier.New(copier.FIG, p, eng)
//	if err != nil {
//	    return err
//	}
//	s := eng.NewSession("fig", transfer.Read, "game.fig", p)
//	n, err := a.ReadROM(ctx, s, out)
//
// Adapters leave a session in the finalizing state on success; the caller
// marks it done once the destination is committed.
package copier
