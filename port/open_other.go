//go:build !linux

package port

import (
	"fmt"
	"runtime"
)

func openPPDev(path string) (Port, error) {
	return nil, fmt.Errorf("ppdev ports are not supported on %s", runtime.GOOS)
}

func openDevPort(base uint16) (Port, error) {
	return nil, fmt.Errorf("raw port access at 0x%X is not supported on %s", base, runtime.GOOS)
}
