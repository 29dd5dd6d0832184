//go:build linux

package main

import "github.com/cdemu-project/cdemu-go/internal/vhba"

// openChardevTransport opens a real VHBA character device node. Each open
// of the same path registers a fresh virtual device with the kernel
// driver, matching the teacher's own one-open-per-device pattern for
// /dev/vhba_ctl.
func openChardevTransport(path string) (vhba.Transport, error) {
	return vhba.OpenCharDevice(path)
}
