package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// Resyncer brings a copier link back to a known state.
type Resyncer interface {
	Resync() error
}

// Mover moves one chunk between the host and the copier. A Mover must be
// able to repeat a chunk after Resync.
type Mover interface {
	Resyncer

	// Move transfers buf at offset off of the current segment.
	Move(off int64, buf []byte) error
}

// Funcs adapts plain functions to Mover.
type Funcs struct {
	MoveFunc   func(off int64, buf []byte) error
	ResyncFunc func() error
}

// Move implements Mover.
func (f Funcs) Move(off int64, buf []byte) error {
	return f.MoveFunc(off, buf)
}

// Resync implements Mover.
func (f Funcs) Resync() error {
	if f.ResyncFunc == nil {
		return nil
	}
	return f.ResyncFunc()
}

// Engine moves data in bounded chunks, retrying failed chunks after a
// resync and reporting progress between chunks.
//
// Engine is not safe for concurrent use; a port carries one session at a time.
type Engine struct {
	config Config
}

// New creates a new Engine with the given options.
//
// Example:
//
//	eng := transfer.New(
//	    transfer.WithProgressCallback(progressFunc),
//	    transfer.WithCancelFunc(kb.Pressed),
//	)
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{config: cfg}
}

// Polls returns the configured link poll budgets.
func (e *Engine) Polls() Polls {
	return e.config.Polls
}

// Logger returns the configured logger, never nil.
func (e *Engine) Logger() Logger {
	if e.config.Logger == nil {
		return nopLogger{}
	}
	return e.config.Logger
}

// NewSession creates a session whose retry budget follows the engine
// configuration.
func (e *Engine) NewSession(family string, dir Direction, path string, p port.Port) *Session {
	s := NewSession(family, dir, path, p, e.config.Retries)
	s.Budget.OnSpend(func(used int) {
		e.logInfo("chunk retry", "session", s.ID, "retries", used, "max", s.Budget.Max())
	})
	return s
}

// Receive reads size bytes from m in chunks and writes each chunk to dst
// once it has been received completely. Offsets passed to m start at 0.
func (e *Engine) Receive(ctx context.Context, s *Session, dst io.Writer, size int64, chunk int, m Mover) error {
	if err := e.begin(s, size, chunk); err != nil {
		return err
	}

	buf := make([]byte, chunk)
	for off := int64(0); off < size; {
		if err := e.checkCancel(ctx, s); err != nil {
			return err
		}

		n := int64(chunk)
		if size-off < n {
			n = size - off
		}
		b := buf[:n]
		at := off

		if err := e.Do(s, fmt.Sprintf("read 0x%06X", at), m, func() error {
			return m.Move(at, b)
		}); err != nil {
			return err
		}

		if _, err := dst.Write(b); err != nil {
			return &protocol.TransferIOError{Path: s.Path, Op: "write", Err: err}
		}

		off += n
		s.Done += n
		e.reportProgress(s)
	}
	return nil
}

// Send reads size bytes from src in chunks and hands each chunk to m.
func (e *Engine) Send(ctx context.Context, s *Session, src io.Reader, size int64, chunk int, m Mover) error {
	if err := e.begin(s, size, chunk); err != nil {
		return err
	}

	buf := make([]byte, chunk)
	for off := int64(0); off < size; {
		if err := e.checkCancel(ctx, s); err != nil {
			return err
		}

		n := int64(chunk)
		if size-off < n {
			n = size - off
		}
		b := buf[:n]
		at := off

		if _, err := io.ReadFull(src, b); err != nil {
			return &protocol.TransferIOError{Path: s.Path, Op: "read", Err: err}
		}

		if err := e.Do(s, fmt.Sprintf("write 0x%06X", at), m, func() error {
			return m.Move(at, b)
		}); err != nil {
			return err
		}

		off += n
		s.Done += n
		e.reportProgress(s)
	}
	return nil
}

// Do runs op, resynchronising and repeating it while it fails with a
// retryable error. Every failure is charged to the session budget; once the
// budget is exhausted Do fails without another attempt.
func (e *Engine) Do(s *Session, op string, r Resyncer, fn func() error) error {
	var last error
	for {
		if s.Budget.Exhausted() {
			return &protocol.SyncTimeoutError{
				Operation: op,
				Attempts:  s.Budget.Used(),
				Fatal:     true,
				Err:       last,
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !protocol.IsRetryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		last = err
		s.Budget.Spend()
		e.logDebug("resynchronising", "session", s.ID, "op", op, "error", err)

		if err := r.Resync(); err != nil {
			return fmt.Errorf("%s: resync: %w", op, err)
		}
	}
}

func (e *Engine) begin(s *Session, size int64, chunk int) error {
	if chunk <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunk)
	}
	if size < 0 {
		return &protocol.ProtocolSizeError{Operation: "transfer", Size: size, Reason: "negative size"}
	}
	if s.State == protocol.Idle {
		// nothing to negotiate
		s.State = protocol.Negotiating
	}
	return s.Enter(protocol.Transferring)
}

// checkCancel observes a user abort. It is only called between chunks.
func (e *Engine) checkCancel(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		s.cancel()
		e.logInfo("transfer cancelled", "session", s.ID, "done", s.Done)
		return errors.Join(protocol.ErrUserAbort, err)
	}
	if e.config.CancelFunc() {
		s.cancel()
		e.logInfo("transfer cancelled", "session", s.ID, "done", s.Done)
		return protocol.ErrUserAbort
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(s *Session) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(s.Progress())
	}
}

// ReportProgress emits a progress event outside the chunk loop, for phase
// changes.
func (e *Engine) ReportProgress(s *Session) {
	e.reportProgress(s)
}

// logDebug logs a debug message if logger is configured.
func (e *Engine) logDebug(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is configured.
func (e *Engine) logInfo(msg string, keysAndValues ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Info(msg, keysAndValues...)
	}
}
