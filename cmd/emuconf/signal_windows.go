// Shutdown signals for `emuconf watch` on Windows, which has no SIGTERM.
// The runtime maps CTRL_BREAK_EVENT and console close to os.Interrupt.

//go:build windows

package main

import "os"

// shutdownSignals lists the signals that stop a long-running command.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
