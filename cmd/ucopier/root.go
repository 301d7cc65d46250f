package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/moffa90/go-copier/config"
	"github.com/moffa90/go-copier/copier"
	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/session"
	"github.com/moffa90/go-copier/simulator"
	"github.com/moffa90/go-copier/transfer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	in      *os.File
	out     io.Writer
	v       *viper.Viper
	log     *logrus.Logger
	cfg     *config.Config
	cfgFile string
}

func newApp(in *os.File, out, errOut io.Writer) *app {
	log := logrus.New()
	log.SetOutput(errOut)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &app{in: in, out: out, v: viper.New(), log: log}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ucopier",
		Short: "Transfer ROM and save RAM images to and from game copiers",
		Long: `ucopier drives parallel port game copiers: Pro Fighter (FIG), Game
Doctor SF3/SF6, Super Magic Card, Super Flash and ToToTek flash carts.

A missing FILE is dumped from the copier, an existing one is uploaded.
Press q or Esc to abort a running transfer at the next chunk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.ucopier.yaml)")
	flags.StringP("port", "p", "", "ppdev path, I/O base address (0x378, lpt1) or sim:<family>")
	flags.StringP("family", "f", "", "copier family (fig, gd3, gd6, smc, sflash, tototek)")
	flags.Int("retries", 0, "failed chunk attempts tolerated per transfer")
	flags.Bool("verbose", false, "log debug messages")
	flags.Bool("trace", false, "log every port register write")

	for _, key := range []string{"port", "family", "retries", "verbose", "trace"} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	cmd.AddCommand(a.romCmd(), a.sramCmd(), a.probeCmd(), a.familiesCmd())
	return cmd
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	switch {
	case cfg.Trace || cfg.Verbose:
		a.log.SetLevel(logrus.DebugLevel)
	default:
		a.log.SetLevel(logrus.InfoLevel)
	}
	return nil
}

// transferEnv is what a command needs to run transfers on the configured
// copier.
type transferEnv struct {
	runner   *session.Runner
	progress *progress
	close    func()
}

func (a *app) open(label string) (*transferEnv, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	family, err := a.cfg.CopierFamily()
	if err != nil {
		return nil, err
	}

	p, err := a.openPort()
	if err != nil {
		return nil, err
	}
	log := logger{l: a.log}
	if a.cfg.Trace {
		p = port.Trace(p, log, a.cfg.Verbose)
	}

	env := &transferEnv{progress: newProgress(a.out, label)}
	cancel := port.NeverCancel
	kb, err := port.NewKeyboard(a.in)
	if err != nil {
		a.log.WithError(err).Debug("abort keys unavailable")
	} else {
		cancel = kb.Pressed
	}
	env.close = func() {
		if kb != nil {
			if err := kb.Close(); err != nil {
				a.log.WithError(err).Debug("failed to restore terminal")
			}
		}
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.log.WithError(err).Debug("failed to close port")
			}
		}
	}

	opts := append(a.cfg.EngineOptions(),
		transfer.WithLogger(log),
		transfer.WithProgressCallback(env.progress.Update),
		transfer.WithCancelFunc(cancel),
	)
	env.runner, err = session.NewRunner(family, p, transfer.New(opts...))
	if err != nil {
		env.close()
		return nil, err
	}
	return env, nil
}

func (a *app) openPort() (port.Port, error) {
	if name, ok := a.cfg.Simulated(); ok {
		a.log.WithField("family", name).Info("using loopback device")
		return simulator.ForFamily(name)
	}
	return port.Open(a.cfg.Port)
}

func (a *app) romCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rom FILE [FILE...]",
		Short: "Dump or upload a ROM image",
		Long: `Dump the cartridge into FILE when it does not exist, otherwise upload it.

Game Doctor copiers accept several files, which are sent as consecutive
units of one image.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open("rom")
			if err != nil {
				return err
			}
			defer env.close()

			var s *transfer.Session
			if len(args) > 1 {
				s, err = env.runner.WriteROM(cmd.Context(), args...)
			} else {
				s, err = env.runner.ROM(cmd.Context(), args[0])
			}
			env.progress.Finish(err)
			if err != nil {
				return err
			}
			a.summary(s)
			return nil
		},
	}
}

func (a *app) sramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sram FILE",
		Short: "Dump or restore save RAM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open("sram")
			if err != nil {
				return err
			}
			defer env.close()

			s, err := env.runner.SRAM(cmd.Context(), args[0])
			env.progress.Finish(err)
			if err != nil {
				return err
			}
			a.summary(s)
			return nil
		},
	}
}

func (a *app) probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Show the copier capabilities and the inserted cartridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open("probe")
			if err != nil {
				return err
			}
			defer env.close()

			adapter := env.runner.Adapter()
			info, _ := copier.Info(adapter.Family())
			fmt.Fprintf(a.out, "copier:   %s (%s)\n", info.Description, info.Family)
			fmt.Fprintf(a.out, "supports: %s\n", supported(info))

			if _, ok := adapter.(copier.Prober); !ok {
				return nil
			}
			res, _, err := env.runner.Probe(cmd.Context())
			if err != nil {
				return err
			}
			if res.Chip != "" {
				fmt.Fprintf(a.out, "flash:    %s, %d KB\n", res.Chip, res.ChipSize/1024)
			}
			mapping := "lorom"
			if res.HiROM {
				mapping = "hirom"
			}
			fmt.Fprintf(a.out, "mapping:  %s\n", mapping)
			if res.ROMSize > 0 {
				fmt.Fprintf(a.out, "rom:      %d Mbit\n", res.ROMSize>>17)
			}
			if res.SRAMSize > 0 {
				fmt.Fprintf(a.out, "sram:     %d KB\n", res.SRAMSize/1024)
			}
			return nil
		},
	}
}

func (a *app) familiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the supported copier families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tCOPIER\tOPERATIONS")
			for _, info := range copier.Families() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Family, info.Description, supported(info))
			}
			return w.Flush()
		},
	}
}

func supported(info copier.FamilyInfo) string {
	var ops []string
	for _, op := range []copier.Operation{copier.ReadROM, copier.WriteROM, copier.ReadSRAM, copier.WriteSRAM} {
		if info.Supports[op] {
			ops = append(ops, op.String())
		}
	}
	return strings.Join(ops, ", ")
}

func (a *app) summary(s *transfer.Session) {
	a.log.WithFields(logrus.Fields{
		"family":  s.Family,
		"file":    s.Path,
		"bytes":   s.Done,
		"retries": s.Retries(),
		"resyncs": s.SyncRetries,
		"elapsed": time.Since(s.Started).Round(time.Millisecond),
	}).Infof("%s complete", s.Direction)
}
