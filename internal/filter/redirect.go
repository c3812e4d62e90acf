package filter

import (
	"fmt"
	"regexp"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// RedirectFilter hides redirects whose Location matches a regular expression,
// such as a catch-all redirect to a login page.
type RedirectFilter struct {
	re *regexp.Regexp
}

func NewRedirectFilter(expr string) (*RedirectFilter, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("exclude redirect %q: %w", expr, err)
	}
	return &RedirectFilter{re: re}, nil
}

func (f *RedirectFilter) Name() string { return "redirect" }

func (f *RedirectFilter) ShouldFilter(resp *scanner.Response) bool {
	return resp.RedirectURL != "" && f.re.MatchString(resp.RedirectURL)
}
