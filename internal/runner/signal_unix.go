//go:build !windows

package runner

import "golang.org/x/sys/unix"

// sendInterrupt raises SIGINT for this process so raw-mode Ctrl+C takes the
// same shutdown path as a terminal interrupt.
func sendInterrupt() {
	_ = unix.Kill(unix.Getpid(), unix.SIGINT)
}
