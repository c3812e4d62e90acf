package scanner

import (
	"net/http"
	"strings"
)

// Job is one compiled request path awaiting a probe.
type Job struct {
	ID     uint64
	Method string
	Path   string // relative to the target base path, no leading slash
	Dir    string // directory the job belongs to: "" for root, else ends in "/"
	Depth  int    // recursion depth, 0 = root
	Parent string // directory whose hit caused this segment; reporting only
}

// method returns the HTTP method, defaulting to GET.
func (j Job) method() string {
	if j.Method == "" {
		return http.MethodGet
	}
	return j.Method
}

// Segment is a directory awaiting dictionary expansion.
type Segment struct {
	Dir    string
	Depth  int
	Parent string
}

// RootSegment is the depth-0 segment for the target base path.
func RootSegment() Segment { return Segment{} }

// NormalizeDir turns a path into a directory key: no leading slash, exactly
// one trailing slash, "" for the root.
func NormalizeDir(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
