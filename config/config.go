// Package config loads ucopier settings from a YAML file, UCOPIER_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/moffa90/go-copier/copier"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
	"github.com/moffa90/go-copier/transfer"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "UCOPIER"

// SimPrefix selects a loopback device instead of hardware, as in "sim:fig".
const SimPrefix = "sim:"

var (
	ErrNoPort         = errors.New("port must be set")
	ErrNoFamily       = errors.New("copier family must be set")
	ErrUnknownFamily  = errors.New("unknown copier family")
	ErrInvalidRetries = errors.New("retries must not be negative")
	ErrInvalidPoll    = errors.New("poll budgets must be greater than 0")
	ErrInvalidDelay   = errors.New("ffe delay must be greater than 0")
)

// Config holds all application configuration.
type Config struct {
	// Port is a ppdev path, an I/O base address or sim:<family>
	Port string `mapstructure:"port"`

	// Family is the copier family name
	Family string `mapstructure:"family"`

	// Retries bounds the failed chunk attempts of one session
	Retries int `mapstructure:"retries"`

	Poll  PollConfig  `mapstructure:"poll"`
	Delay DelayConfig `mapstructure:"delay"`

	// Verbose enables debug logging
	Verbose bool `mapstructure:"verbose"`

	// Trace logs every port register access
	Trace bool `mapstructure:"trace"`
}

// PollConfig holds the per-link busy-wait budgets, in status reads.
type PollConfig struct {
	FFE int `mapstructure:"ffe"`
	GD  int `mapstructure:"gd"`
	EPP int `mapstructure:"epp"`
}

// DelayConfig holds settle delays, in status reads.
type DelayConfig struct {
	FFE int `mapstructure:"ffe"`
}

// NewDefaultConfig returns a configuration with the hardware defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Port:    fmt.Sprintf("0x%X", port.LPT1),
		Retries: protocol.DefaultRetries,
		Poll: PollConfig{
			FFE: protocol.DefaultFFEPoll,
			GD:  protocol.DefaultGDPoll,
			EPP: protocol.DefaultEPPPoll,
		},
		Delay: DelayConfig{
			FFE: protocol.DefaultSettleDelay,
		},
	}
}

// SetDefaults registers every key with its default so that environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("port", d.Port)
	v.SetDefault("family", d.Family)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("poll.ffe", d.Poll.FFE)
	v.SetDefault("poll.gd", d.Poll.GD)
	v.SetDefault("poll.epp", d.Poll.EPP)
	v.SetDefault("delay.ffe", d.Delay.FFE)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("trace", d.Trace)
}

// Load reads file, or $HOME/.ucopier.yaml when file is empty, on top of the
// defaults and environment. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".ucopier")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return ErrNoPort
	}
	if strings.TrimSpace(c.Family) == "" {
		return ErrNoFamily
	}
	if _, err := copier.ParseFamily(c.Family); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownFamily, c.Family)
	}
	if c.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.Poll.FFE <= 0 || c.Poll.GD <= 0 || c.Poll.EPP <= 0 {
		return ErrInvalidPoll
	}
	if c.Delay.FFE <= 0 {
		return ErrInvalidDelay
	}
	return nil
}

// CopierFamily returns the configured family.
func (c *Config) CopierFamily() (copier.Family, error) {
	f, err := copier.ParseFamily(c.Family)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, c.Family)
	}
	return f, nil
}

// Simulated returns the family of the loopback device named by Port, if
// Port names one.
func (c *Config) Simulated() (string, bool) {
	if !strings.HasPrefix(c.Port, SimPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(c.Port, SimPrefix)
	if name == "" {
		name = c.Family
	}
	return name, true
}

// EngineOptions returns the transfer engine options for the configuration.
func (c *Config) EngineOptions() []transfer.Option {
	return []transfer.Option{
		transfer.WithRetries(c.Retries),
		transfer.WithPolls(transfer.Polls{
			FFE:    protocol.PollBudget(c.Poll.FFE),
			GD:     protocol.PollBudget(c.Poll.GD),
			EPP:    protocol.PollBudget(c.Poll.EPP),
			Settle: c.Delay.FFE,
		}),
	}
}
