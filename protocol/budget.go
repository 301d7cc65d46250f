package protocol

import "github.com/moffa90/go-copier/port"

// PollBudget bounds a busy-wait on the status register. One unit of budget is
// one status read.
type PollBudget int

// Wait reads the status register until ready returns true or the budget is
// spent. It returns the last status value read.
func (b PollBudget) Wait(p port.Port, op string, ready func(status byte) bool) (byte, error) {
	status, err := b.Poll(op, func() byte { return p.ReadReg(port.Status) }, ready)
	if err != nil {
		if perr := port.Err(p); perr != nil {
			return status, &SyncTimeoutError{Operation: op, Attempts: int(b), Fatal: true, Err: perr}
		}
	}
	return status, err
}

// Poll calls read until ready accepts its value or the budget is spent.
func (b PollBudget) Poll(op string, read func() byte, ready func(v byte) bool) (byte, error) {
	var v byte
	for i := 0; i < int(b); i++ {
		v = read()
		if ready(v) {
			return v, nil
		}
	}
	return v, &SyncTimeoutError{Operation: op, Attempts: int(b)}
}

// RetryBudget counts failed attempts across one session. Every retryable
// failure spends one unit; once the bound is reached further attempts are
// refused.
type RetryBudget struct {
	max     int
	used    int
	onSpend func(used int)
}

// NewRetryBudget creates a budget allowing max failures.
func NewRetryBudget(max int) *RetryBudget {
	if max < 0 {
		max = 0
	}
	return &RetryBudget{max: max}
}

// OnSpend registers fn to be called after each spent unit.
func (b *RetryBudget) OnSpend(fn func(used int)) {
	b.onSpend = fn
}

// Spend records one failed attempt.
func (b *RetryBudget) Spend() {
	b.used++
	if b.onSpend != nil {
		b.onSpend(b.used)
	}
}

// Exhausted reports whether no attempt may be made anymore.
func (b *RetryBudget) Exhausted() bool {
	return b.used >= b.max
}

// Used returns the number of failed attempts so far.
func (b *RetryBudget) Used() int {
	return b.used
}

// Remaining returns the number of attempts still allowed.
func (b *RetryBudget) Remaining() int {
	if b.used >= b.max {
		return 0
	}
	return b.max - b.used
}

// Max returns the bound the budget was created with.
func (b *RetryBudget) Max() int {
	return b.max
}
