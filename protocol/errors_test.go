package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "checksum", err: &ChecksumError{Operation: "read"}, want: true},
		{name: "wrapped checksum", err: fmt.Errorf("chunk 3: %w", &ChecksumError{}), want: true},
		{name: "timeout", err: &SyncTimeoutError{Operation: "send"}, want: true},
		{name: "fatal timeout", err: &SyncTimeoutError{Operation: "resync", Fatal: true}, want: false},
		{name: "user abort", err: ErrUserAbort, want: false},
		{name: "size", err: &ProtocolSizeError{Operation: "probe"}, want: false},
		{name: "flash", err: &FlashError{Operation: "erase"}, want: false},
		{name: "io", err: &TransferIOError{Path: "x", Op: "write", Err: errors.New("disk full")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
			if tt.err != nil {
				assert.Equal(t, !tt.want, IsFatal(tt.err))
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := &SyncTimeoutError{Operation: "ffe send", Attempts: 100, Err: errors.New("busy")}
	assert.Equal(t, "ffe send: copier not responding after 100 attempts: busy", err.Error())

	cerr := &ChecksumError{Operation: "read 0xA000", Expected: 0x12, Actual: 0x34}
	assert.Equal(t, "read 0xA000: checksum mismatch (expected 0x12, got 0x34)", cerr.Error())

	perr := &PortInitError{Port: "0x378", Err: errors.New("permission denied")}
	assert.ErrorContains(t, perr, "permission denied")
	assert.ErrorIs(t, perr, perr.Err)

	serr := &ProtocolSizeError{Operation: "smc header", Size: 0, Reason: "no blocks"}
	assert.Equal(t, "smc header: invalid size 0: no blocks", serr.Error())
	assert.True(t, IsSizeError(fmt.Errorf("wrap: %w", serr)))
	assert.True(t, IsSyncTimeout(err))
}
