//go:build linux

package port

func openPPDev(path string) (Port, error) {
	return OpenPPDev(path)
}

func openDevPort(base uint16) (Port, error) {
	return OpenDevPort(base)
}
