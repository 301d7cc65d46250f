// Package simulator provides loopback copier devices that implement
// port.Port. They answer the same register traffic as the hardware closely
// enough to run full transfers in tests and dry runs, and can inject the
// faults real links suffer from.
//
// Available devices:
//
//   - FIG: Pro Fighter on the FFE link
//   - SMC: Super Magic Card on the FFE link
//   - GD: Game Doctor SF3 or SF6/SF7
//   - Flash: ToToTek register file in front of a flash chip (Super Flash and
//     generic ToToTek programmers)
//
// # Faults
//
// Each device accepts a Faults value:
//
//	dev := simulator.NewGD(6, simulator.Faults{DropAt: 100, RefuseSyncs: 2})
//
// DropAt hangs the device on the given exchange until the next resync,
// StallAt makes it report busy for StallReads status reads, CorruptRead
// spoils the checksum of one FFE read block and RefuseSyncs ignores that many
// resync sequences.
package simulator
