// Shutdown signals for `emuconf watch` on Linux, macOS and the BSDs.

//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals lists the signals that stop a long-running command.
// SIGTERM is what service managers send for a graceful stop.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
