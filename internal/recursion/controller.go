// Package recursion decides which discovered paths are directories worth
// re-scanning and feeds them back to the scheduler as new segments.
package recursion

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
	"github.com/maxvaer/dirsweep/internal/wordlist"
)

// Mode selects how a found path is recognised as a directory.
type Mode string

const (
	// ModeSlash recurses on a trailing slash or a redirect that adds one.
	ModeSlash Mode = "slash"
	// ModeAuto also treats 2xx paths without an extension as directories.
	ModeAuto Mode = "auto"
	// ModeForce recurses into every found path.
	ModeForce Mode = "force"
	// ModeDeep recurses into every parent directory of a found path.
	ModeDeep Mode = "deep"
)

// ParseMode validates a mode name; "" selects ModeSlash.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeSlash, nil
	case ModeSlash, ModeAuto, ModeForce, ModeDeep:
		return m, nil
	}
	return "", fmt.Errorf("unknown recursion mode %q (slash, auto, force, deep)", s)
}

// Config controls recursion.
type Config struct {
	Mode           Mode
	MaxDepth       int   // 0 disables recursion
	StatusCodes    []int // only recurse on these; empty = any found status
	ExcludeSubdirs []string
	AlwaysRecurse  []string
	Log            logrus.FieldLogger
}

// Controller implements scanner.Recurser for one target.
type Controller struct {
	cfg      Config
	compiler *wordlist.Compiler
	visited  *VisitedSet
	always   map[string]struct{}
	excluded []string
}

// New creates a controller that expands directories with compiler.
func New(cfg Config, compiler *wordlist.Compiler) *Controller {
	if cfg.Mode == "" {
		cfg.Mode = ModeSlash
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	c := &Controller{
		cfg:      cfg,
		compiler: compiler,
		visited:  NewVisitedSet(),
		always:   make(map[string]struct{}, len(cfg.AlwaysRecurse)),
	}
	for _, p := range cfg.AlwaysRecurse {
		if d := Normalize(p); d != "" {
			c.always[d] = struct{}{}
		}
	}
	for _, p := range cfg.ExcludeSubdirs {
		if d := Normalize(p); d != "" {
			c.excluded = append(c.excluded, d)
		}
	}
	return c
}

// Visited exposes the set of queued directories.
func (c *Controller) Visited() *VisitedSet { return c.visited }

// Expand compiles the dictionary for dir.
func (c *Controller) Expand(dir string) []string {
	return c.compiler.Paths(dir)
}

// Seed returns the root segment and the explicit subdirectories, all at
// depth 0 and all deduplicated through the visited set.
func (c *Controller) Seed(subdirs []string) []scanner.Segment {
	var segs []scanner.Segment
	if c.visited.Add("") {
		segs = append(segs, scanner.RootSegment())
	}
	for _, s := range subdirs {
		d := Normalize(s)
		if d == "" || !c.visited.Add(d) {
			continue
		}
		segs = append(segs, scanner.Segment{Dir: d})
	}
	return segs
}

// Restore marks directories from a previous session as already queued.
func (c *Controller) Restore(dirs []string) {
	for _, d := range dirs {
		c.visited.Add(d)
	}
}

// Recurse returns the new segments a found result opens up. Reaching the
// depth limit is not an error; the result is simply not recursed.
func (c *Controller) Recurse(r *scanner.ProbeResult) []scanner.Segment {
	if r.Outcome != scanner.Found || r.Job.Depth >= c.cfg.MaxDepth {
		return nil
	}
	if len(c.cfg.StatusCodes) > 0 && !slices.Contains(c.cfg.StatusCodes, r.StatusCode) {
		return nil
	}

	var segs []scanner.Segment
	for _, d := range c.candidates(r) {
		if d == "" || c.isExcluded(d) || !c.visited.Add(d) {
			continue
		}
		c.cfg.Log.WithFields(logrus.Fields{
			"dir":   "/" + d,
			"depth": r.Job.Depth + 1,
		}).Debug("queueing directory")
		segs = append(segs, scanner.Segment{Dir: d, Depth: r.Job.Depth + 1, Parent: r.Job.Dir})
	}
	return segs
}

func (c *Controller) candidates(r *scanner.ProbeResult) []string {
	p := r.Job.Path
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if _, ok := c.always[Normalize(p)]; ok {
		return []string{Normalize(p)}
	}

	switch c.cfg.Mode {
	case ModeForce:
		return []string{Normalize(p)}
	case ModeDeep:
		dirs := parentDirs(r.Job.Dir, p)
		if redirectsToSlash(r) {
			dirs = append(dirs, Normalize(p))
		}
		return dirs
	case ModeAuto:
		if strings.HasSuffix(p, "/") || redirectsToSlash(r) || looksLikeDirectory(r) {
			return []string{Normalize(p)}
		}
	default:
		if strings.HasSuffix(p, "/") || redirectsToSlash(r) {
			return []string{Normalize(p)}
		}
	}
	return nil
}

func (c *Controller) isExcluded(dir string) bool {
	for _, e := range c.excluded {
		if strings.HasPrefix(dir, e) {
			return true
		}
	}
	return false
}

// redirectsToSlash reports whether r redirected to its own path plus "/".
func redirectsToSlash(r *scanner.ProbeResult) bool {
	if r.RedirectURL == "" || r.URL == "" {
		return false
	}
	req, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	loc, err := req.Parse(r.RedirectURL)
	if err != nil {
		return false
	}
	return loc.Path == req.Path+"/"
}

// looksLikeDirectory guesses from shape: a redirect ending in "/" or a 2xx
// whose last segment has no extension.
func looksLikeDirectory(r *scanner.ProbeResult) bool {
	p := r.Job.Path
	if r.StatusCode >= 300 && r.StatusCode < 400 {
		return strings.HasSuffix(r.RedirectURL, "/")
	}
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		last := p[strings.LastIndex(p, "/")+1:]
		return !strings.Contains(last, ".")
	}
	return false
}

// parentDirs lists every directory of p below base, outermost first:
// "a/b/c.php" under "" gives "a/", "a/b/".
func parentDirs(base, p string) []string {
	rel := strings.TrimPrefix(p, base)
	var dirs []string
	for i, ch := range rel {
		if ch == '/' {
			dirs = append(dirs, Normalize(base+rel[:i+1]))
		}
	}
	return dirs
}
