// Package port is the register access layer for parallel-port attached copiers.
//
// # Overview
//
// Every copier protocol in this module is bit-banged through the registers of
// a PC parallel port. This package reduces the port to the smallest possible
// contract:
//
//	type Port interface {
//	    ReadReg(r Register) byte
//	    WriteReg(r Register, v byte)
//	}
//
// Register access is total: it never returns an error and never retries.
// Hardware that stops answering shows up one layer higher, as a poll budget
// running out in package protocol.
//
// # Backends
//
//   - PPDev: Linux ppdev character device (/dev/parport0), usable without root
//     when the user is in the lp group. Supports EPP address/data cycles.
//   - DevPort: Linux /dev/port, raw I/O space access by base address (0x378).
//   - Trace: wraps any Port and logs each register access.
//
// Test and loopback devices live in package simulator.
//
// # Cancellation
//
// A CancelFunc is polled by the transfer engine between chunks. Keyboard
// provides one that reports true once q or Esc was pressed on the terminal.
package port
