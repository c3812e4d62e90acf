// Package filter classifies probe responses: status policy, content
// filters and per-directory wildcard calibration.
package filter

import "github.com/maxvaer/dirsweep/internal/scanner"

// Filter decides whether a candidate response is a false positive.
type Filter interface {
	Name() string
	ShouldFilter(resp *scanner.Response) bool
}

// Chain applies multiple filters in order, short-circuiting on the first match.
type Chain struct {
	filters []Filter
}

// NewChain returns an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int { return len(c.filters) }

// Apply runs every filter against the response. Returns true and the filter
// name if the response should be filtered out.
func (c *Chain) Apply(resp *scanner.Response) (bool, string) {
	for _, f := range c.filters {
		if f.ShouldFilter(resp) {
			return true, f.Name()
		}
	}
	return false, ""
}
