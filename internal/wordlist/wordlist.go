package wordlist

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed default.txt
var embeddedWordlist string

// Placeholder is replaced by each configured extension during compilation.
const Placeholder = "%EXT%"

// Entry is one raw wordlist line.
type Entry string

// HasPlaceholder reports whether the entry needs extension substitution.
func (e Entry) HasPlaceholder() bool {
	return strings.Contains(string(e), Placeholder)
}

// Load reads wordlist entries from path. An empty path selects the embedded
// default wordlist and "-" reads from stdin.
func Load(path string) ([]Entry, error) {
	switch path {
	case "":
		return Read(strings.NewReader(embeddedWordlist))
	case "-":
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading wordlist %s: %w", path, err)
	}
	defer f.Close()
	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading wordlist %s: %w", path, err)
	}
	return entries, nil
}

// LoadFiles concatenates several wordlists in the given order. No paths
// means the embedded default.
func LoadFiles(paths []string) ([]Entry, error) {
	if len(paths) == 0 {
		return Load("")
	}
	var all []Entry
	for _, p := range paths {
		entries, err := Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// Read returns the entries of r in order. Blank lines and # comments are
// skipped; duplicates are kept and removed later by the compiler.
func Read(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var entries []Entry
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, Entry(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
