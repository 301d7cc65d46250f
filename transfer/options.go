package transfer

import (
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// Config holds the engine configuration.
type Config struct {
	// ProgressCallback is called after every chunk to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// CancelFunc is polled between chunks; returning true aborts the transfer
	CancelFunc port.CancelFunc

	// Retries bounds the failed chunk attempts of one session
	Retries int

	// Polls holds the poll budgets handed to the copier links
	Polls Polls
}

// Polls holds per-link poll budgets, in status reads.
type Polls struct {
	FFE    protocol.PollBudget
	GD     protocol.PollBudget
	EPP    protocol.PollBudget
	Settle int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		CancelFunc: port.NeverCancel,
		Retries:    protocol.DefaultRetries,
		Polls: Polls{
			FFE:    protocol.DefaultFFEPoll,
			GD:     protocol.DefaultGDPoll,
			EPP:    protocol.DefaultEPPPoll,
			Settle: protocol.DefaultSettleDelay,
		},
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithProgressCallback sets a callback function to track transfer progress.
//
// Example:
//
//	eng := transfer.New(
//	    transfer.WithProgressCallback(func(p transfer.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the engine and the adapters using it.
//
// Example:
//
//	eng := transfer.New(transfer.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithCancelFunc sets the function polled between chunks for a user abort.
//
// Example:
//
//	kb, _ := port.NewKeyboard(os.Stdin)
//	eng := transfer.New(transfer.WithCancelFunc(kb.Pressed))
func WithCancelFunc(cancel port.CancelFunc) Option {
	return func(c *Config) {
		if cancel != nil {
			c.CancelFunc = cancel
		}
	}
}

// WithRetries sets the number of failed chunk attempts a session tolerates.
//
// Example:
//
//	eng := transfer.New(transfer.WithRetries(32))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithPolls sets the link poll budgets. Zero fields keep their defaults.
//
// Example:
//
//	eng := transfer.New(transfer.WithPolls(transfer.Polls{GD: 0x200000}))
func WithPolls(p Polls) Option {
	return func(c *Config) {
		if p.FFE > 0 {
			c.Polls.FFE = p.FFE
		}
		if p.GD > 0 {
			c.Polls.GD = p.GD
		}
		if p.EPP > 0 {
			c.Polls.EPP = p.EPP
		}
		if p.Settle > 0 {
			c.Polls.Settle = p.Settle
		}
	}
}
