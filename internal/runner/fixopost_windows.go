//go:build windows

package runner

// fixOutputProcessing is a no-op: Windows consoles keep output processing
// in raw input mode.
func fixOutputProcessing(int) {}
