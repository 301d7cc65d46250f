// Package transfer implements the chunked bulk transfer loop shared by all
// copier adapters.
//
// # Basic Usage
//
//	eng := transfer.New(
//	    transfer.WithProgressCallback(func(p transfer.Progress) {
//	        fmt.Printf("%.1f%%\n", p.Percentage)
//	    }),
//	)
//	s := eng.NewSession("fig", transfer.Read, "game.fig", p)
//	s.Grow(size)
//	err := eng.Receive(ctx, s, out, size, 0x2000, mover)
//
// # Chunks and Retries
//
// Each chunk is moved by a Mover. When a chunk fails with a retryable error
// (see protocol.IsRetryable) the engine calls Resync and moves the whole
// chunk again. Failures are charged to the session's RetryBudget; when it
// runs out the session fails with a fatal *protocol.SyncTimeoutError.
//
// A received chunk is written to the destination only once it is complete.
//
// # Cancellation
//
// The context and the configured CancelFunc are checked between chunks only.
// A cancelled session ends in the cancelled state with BytesDone equal to
// the chunks already moved, and the engine returns protocol.ErrUserAbort.
package transfer
