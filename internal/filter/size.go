package filter

import "github.com/maxvaer/dirsweep/internal/scanner"

// SizeFilter excludes responses matching specific body sizes.
type SizeFilter struct {
	sizes map[int64]struct{}
}

// NewSizeFilter creates a filter that drops responses with the given body sizes.
func NewSizeFilter(excludeSizes []int) *SizeFilter {
	f := &SizeFilter{sizes: make(map[int64]struct{}, len(excludeSizes))}
	for _, s := range excludeSizes {
		f.sizes[int64(s)] = struct{}{}
	}
	return f
}

func (f *SizeFilter) Name() string { return "size" }

func (f *SizeFilter) ShouldFilter(resp *scanner.Response) bool {
	_, ok := f.sizes[resp.ContentLength]
	return ok
}

// SizeRangeFilter drops responses smaller than min or larger than max.
// A zero bound is ignored.
type SizeRangeFilter struct {
	min, max int64
}

func NewSizeRangeFilter(min, max int64) *SizeRangeFilter {
	return &SizeRangeFilter{min: min, max: max}
}

func (f *SizeRangeFilter) Name() string { return "size-range" }

func (f *SizeRangeFilter) ShouldFilter(resp *scanner.Response) bool {
	if f.min > 0 && resp.ContentLength < f.min {
		return true
	}
	return f.max > 0 && resp.ContentLength > f.max
}
