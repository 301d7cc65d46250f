package simulator

import (
	"fmt"
	"strings"

	"github.com/moffa90/go-copier/port"
	"github.com/moffa90/go-copier/protocol"
)

// ForFamily returns an empty loopback device for a copier family name
// ("fig", "smc", "gd3", "gd6", "sflash", "tototek").
func ForFamily(name string) (port.Port, error) {
	switch strings.ToLower(name) {
	case "fig":
		return NewFIG(nil, false, Faults{}), nil
	case "smc":
		return NewSMC(Faults{}), nil
	case "gd3":
		return NewGD(3, Faults{}), nil
	case "gd6":
		return NewGD(6, Faults{}), nil
	case "sflash":
		return NewFlash(protocol.FlashChips[0], 0x8000, Faults{}), nil
	case "tototek":
		return NewFlash(protocol.FlashChips[3], 0, Faults{}), nil
	default:
		return nil, fmt.Errorf("no simulator for family %q", name)
	}
}
