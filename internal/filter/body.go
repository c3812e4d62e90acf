package filter

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// BodyMatchFilter only passes responses whose body contains a given string.
type BodyMatchFilter struct {
	needle []byte
}

// NewBodyMatchFilter creates a filter that requires the body to contain needle.
func NewBodyMatchFilter(needle string) *BodyMatchFilter {
	return &BodyMatchFilter{needle: []byte(needle)}
}

func (f *BodyMatchFilter) Name() string { return "body-match" }

func (f *BodyMatchFilter) ShouldFilter(resp *scanner.Response) bool {
	return !bytes.Contains(resp.Body, f.needle)
}

// BodyExcludeFilter hides responses whose body contains any of the given
// strings.
type BodyExcludeFilter struct {
	needles [][]byte
}

// NewBodyExcludeFilter creates a filter that hides responses containing
// any needle.
func NewBodyExcludeFilter(needles ...string) *BodyExcludeFilter {
	f := &BodyExcludeFilter{}
	for _, n := range needles {
		f.needles = append(f.needles, []byte(n))
	}
	return f
}

func (f *BodyExcludeFilter) Name() string { return "body-exclude" }

func (f *BodyExcludeFilter) ShouldFilter(resp *scanner.Response) bool {
	for _, n := range f.needles {
		if bytes.Contains(resp.Body, n) {
			return true
		}
	}
	return false
}

// BodyRegexFilter hides responses whose body matches a regular expression.
type BodyRegexFilter struct {
	re *regexp.Regexp
}

func NewBodyRegexFilter(expr string) (*BodyRegexFilter, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("exclude regex %q: %w", expr, err)
	}
	return &BodyRegexFilter{re: re}, nil
}

func (f *BodyRegexFilter) Name() string { return "body-regex" }

func (f *BodyRegexFilter) ShouldFilter(resp *scanner.Response) bool {
	return f.re.Match(resp.Body)
}
