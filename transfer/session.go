package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// Direction is the data flow of a session, seen from the host.
type Direction int

const (
	// Read moves data from the copier into a file.
	Read Direction = iota

	// Write moves data from a file into the copier.
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Session is one transfer between a file and a copier. It is owned by the
// orchestrator and mutated only by the adapter and engine driving it.
type Session struct {
	// ID identifies the session in logs
	ID string

	// Family is the copier family name
	Family string

	// Direction is the data flow
	Direction Direction

	// Path is the file being read or written
	Path string

	// Port is the parallel port, exclusively owned by the session
	Port port.Port

	// Total is the number of bytes to move
	Total int64

	// Done is the number of bytes moved so far
	Done int64

	// Started is when the session was created
	Started time.Time

	// State is the lifecycle state
	State protocol.State

	// Budget bounds failed attempts across the whole session
	Budget *protocol.RetryBudget

	// Cancelled is set when the user aborted the transfer
	Cancelled bool

	// SyncRetries counts refused link synchronisation attempts
	SyncRetries int
}

// NewSession creates an idle session.
func NewSession(family string, dir Direction, path string, p port.Port, retries int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Family:    family,
		Direction: dir,
		Path:      path,
		Port:      p,
		Started:   time.Now(),
		State:     protocol.Idle,
		Budget:    protocol.NewRetryBudget(retries),
	}
}

// Grow adds n bytes to the session total.
func (s *Session) Grow(n int64) {
	if n > 0 {
		s.Total += n
	}
}

// Retries returns the number of failed attempts so far.
func (s *Session) Retries() int {
	return s.Budget.Used()
}

// Enter moves the session to next.
func (s *Session) Enter(next protocol.State) error {
	if s.State == next && next == protocol.Transferring {
		return nil
	}
	if !s.State.CanTransition(next) {
		return fmt.Errorf("session %s: invalid transition %s -> %s", s.ID, s.State, next)
	}
	s.State = next
	return nil
}

// Fail moves a live session to the error state.
func (s *Session) Fail() {
	if !s.State.Terminal() {
		s.State = protocol.Failed
	}
}

func (s *Session) cancel() {
	s.Cancelled = true
	if s.State.CanTransition(protocol.Cancelled) {
		s.State = protocol.Cancelled
	} else {
		s.Fail()
	}
}

// Progress returns a snapshot of the session progress.
func (s *Session) Progress() Progress {
	p := Progress{
		Phase:     s.State.String(),
		BytesDone: s.Done,
		Total:     s.Total,
		Retries:   s.Retries(),
		Resyncs:   s.SyncRetries,
		Elapsed:   time.Since(s.Started),
	}
	if s.Total > 0 {
		p.Percentage = float64(s.Done) * 100 / float64(s.Total)
	}
	return p
}
