package recursion

import (
	"path"
	"slices"
	"strings"
	"sync"
)

// Normalize turns a path into a directory key: query and fragment
// stripped, cleaned, no leading slash, exactly one trailing slash. The
// root is "".
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// VisitedSet records directories already queued for recursion.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add inserts dir and reports whether it was new.
func (v *VisitedSet) Add(dir string) bool {
	key := Normalize(dir)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (v *VisitedSet) Contains(dir string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[Normalize(dir)]
	return ok
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// Keys returns the visited directories in sorted order.
func (v *VisitedSet) Keys() []string {
	v.mu.Lock()
	keys := make([]string, 0, len(v.seen))
	for k := range v.seen {
		keys = append(keys, k)
	}
	v.mu.Unlock()
	slices.Sort(keys)
	return keys
}
