//go:build windows

package util

import "os"

// ShutdownSignals returns the signals to listen for graceful shutdown.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal attempts graceful process termination.
// Windows has no SIGINT delivery for child processes; teardown relies on
// the exec.Cmd WaitDelay kill instead, so this is a no-op.
func GracefulSignal(p *os.Process) error {
	return nil
}
