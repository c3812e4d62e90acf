package netutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadURLs returns the non-empty, non-comment lines of r.
func ReadURLs(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var urls []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

// ReadURLsFile reads a target list; "-" means stdin.
func ReadURLsFile(path string) ([]string, error) {
	if path == "-" {
		return ReadURLs(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	defer f.Close()
	return ReadURLs(f)
}
