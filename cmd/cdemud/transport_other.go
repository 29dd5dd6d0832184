//go:build !linux

package main

import (
	"fmt"

	"github.com/cdemu-project/cdemu-go/internal/vhba"
)

// openChardevTransport fails outright: the VHBA kernel driver and its
// /dev/vhba_ctl node are Linux-only.
func openChardevTransport(path string) (vhba.Transport, error) {
	return nil, fmt.Errorf("cdemud: the vhba character device transport is only available on linux")
}
