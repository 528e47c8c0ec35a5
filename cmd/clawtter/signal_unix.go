//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals stop "clawtter serve" and cancel a running cycle.
// SIGTERM is used by most process managers (systemd, kubernetes) to request shutdown.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
