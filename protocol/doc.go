// Package protocol implements the handshakes spoken by parallel port game
// copiers.
//
// Each copier family has its own byte exchange on top of the port registers:
//
//   - FFE (Front Far East: Pro Fighter, Super Magic Card): STROBE toggle
//     with BUSY handshake, nibble input, framed commands
//   - Game Doctor SF3: BUSY handshake with a STROBE pulse per byte
//   - Game Doctor SF6/SF7: toggle bit mirrored on BUSY, AUTOFEED sync
//   - ToToTek / Super Flash: EPP register file in front of a flash chip
//
// # FFE Frames
//
// Commands are sent as nine byte frames:
//
//	[D5][AA][96][CMD][ADDR_L][ADDR_H][LEN_L][LEN_H][CHECKSUM]
//
// where CHECKSUM is 0x81 XOR every byte from CMD through LEN_H. Data blocks
// are followed by a checksum computed the same way.
//
//	f := protocol.NewFFE(p, protocol.DefaultFFEPoll, protocol.DefaultSettleDelay)
//	if err := f.SelectPage(0x200); err != nil {
//	    return err
//	}
//	err := f.ReceiveBlock(0xA000, buf)
//
// # Game Doctor Sessions
//
// Both Game Doctor generations share one command layer:
//
//	[MAGIC(4)][KIND] ...        open a session
//	[01][UNIT][OFF(4)][LEN(2)]  block write, data follows
//	[02][UNIT]                  unit info, NAME(12) SIZE(4) returned
//	[03][UNIT][OFF(4)][LEN(2)]  block read, data returned
//	[FF]                        end
//
// A resync keeps the open session, so a block command may simply be repeated
// after a failure.
//
// # Error Handling
//
// Handshake timeouts are reported as *SyncTimeoutError and corrupt blocks as
// *ChecksumError. Both can be retried after Resync; use IsRetryable to tell
// them apart from fatal errors:
//
//	if protocol.IsRetryable(err) {
//	    if err := link.Resync(); err != nil {
//	        return err
//	    }
//	    // repeat the block
//	}
//
// A session's retries are bounded by a RetryBudget.
package protocol
