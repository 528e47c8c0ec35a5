//go:build windows

package main

import (
	"os"
)

// terminationSignals stop "clawtter serve" and cancel a running cycle.
// Windows primarily uses os.Interrupt (Ctrl+C).
var terminationSignals = []os.Signal{os.Interrupt}
