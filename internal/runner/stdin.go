package runner

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// startStdinToggle reads single keypresses from stdin and toggles the
// returned pauser on Enter or Space. The cleanup function restores the
// terminal. If stdin is not a terminal the pauser is nil, which never
// blocks workers.
func startStdinToggle(quiet bool) (pauser *scanner.Pauser, cleanup func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "[!] Could not enable raw terminal: %v\n", err)
		}
		return nil, func() {}
	}
	fixOutputProcessing(fd)

	pauser = scanner.NewPauser()
	cleanup = func() { _ = term.Restore(fd, oldState) }

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			switch buf[0] {
			case 0x03:
				// Ctrl+C: restore the terminal and raise SIGINT so the
				// signal context cancels the scan.
				_ = term.Restore(fd, oldState)
				sendInterrupt()
				return
			case '\r', '\n', ' ':
				nowPaused := pauser.Toggle()
				if quiet {
					continue
				}
				if nowPaused {
					fmt.Fprint(os.Stderr, "\r\033[K[*] Scan PAUSED, press Enter or Space to resume\n")
				} else {
					fmt.Fprintf(os.Stderr, "\r\033[K[*] Scan RESUMED (paused %s in total)\n", pauser.PausedDuration().Round(time.Second))
				}
			}
		}
	}()

	return pauser, cleanup
}
