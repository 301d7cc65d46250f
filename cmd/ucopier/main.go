// Command ucopier moves ROM and save RAM images between files and parallel
// port game copiers.
//
// Usage:
//
//	ucopier rom  game.sfc  --family fig      upload game.sfc
//	ucopier rom  dump.fig  --family fig      dump the cartridge (file missing)
//	ucopier sram game.srm  --family gd6      save RAM, direction inferred
//	ucopier probe --family sflash            show the flash chip and header
//	ucopier families                         list supported copiers
//
// Settings are read from $HOME/.ucopier.yaml, UCOPIER_* environment
// variables and flags, in increasing priority. --port sim:<family> selects a
// loopback device instead of hardware.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, a.rootCmd()); err != nil {
		stop()
		os.Exit(1)
	}
}
