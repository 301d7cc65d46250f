package transfer

import "time"

// Progress contains information about a running transfer.
// Passed to ProgressCallback after every chunk.
type Progress struct {
	// Phase is the session state:
	//   "negotiating"  - probing sizes and arming the copier
	//   "transferring" - moving chunks
	//   "finalizing"   - starting the program, fixing headers
	//   "done"         - transfer completed successfully
	//   "cancelled"    - aborted by the user at a chunk boundary
	Phase string

	// BytesDone is the number of bytes moved so far
	BytesDone int64

	// Total is the number of bytes the session will move. It may grow
	// while a transfer runs, when the copier announces more data.
	Total int64

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// Retries is the number of chunk retries so far
	Retries int

	// Resyncs is the number of refused link synchronisation attempts so far
	Resyncs int

	// Elapsed is the time since the session started
	Elapsed time.Duration
}

// ProgressCallback is called after every chunk to report progress.
// Implementations should return quickly; the copier is waiting.
//
// Example:
//
//	eng := transfer.New(
//	    transfer.WithProgressCallback(func(p transfer.Progress) {
//	        fmt.Printf("[%s] %.1f%% - %d/%d bytes\n",
//	            p.Phase, p.Percentage, p.BytesDone, p.Total)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the engine.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	eng := transfer.New(transfer.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
