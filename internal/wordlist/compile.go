package wordlist

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrEmptyWordlist is returned when compilation yields no paths.
	ErrEmptyWordlist = errors.New("wordlist compiled to zero paths")
	// ErrInvalidPlaceholder is returned when an entry uses %EXT% but no
	// extensions are configured.
	ErrInvalidPlaceholder = errors.New("entry uses " + Placeholder + " but no extensions are configured")
)

// CompilationError marks a wordlist or extension configuration problem. It
// is fatal for the target being compiled, not for the whole run.
type CompilationError struct {
	Entry Entry // offending entry, if any
	Err   error
}

func (e *CompilationError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("compiling wordlist: %q: %v", e.Entry, e.Err)
	}
	return "compiling wordlist: " + e.Err.Error()
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Case selects how compiled entries are re-cased.
type Case string

const (
	CaseKeep    Case = ""
	CaseLower   Case = "lower"
	CaseUpper   Case = "upper"
	CaseCapital Case = "capital"
)

// Options controls dictionary compilation.
type Options struct {
	Extensions        []string
	ForceExtensions   bool // append extensions to entries that lack one
	ExcludeExtensions []string
	OnlySelected      bool // drop entries whose extension is not in Extensions
	Prefixes          []string
	Suffixes          []string
	Case              Case
}

// Compiler holds a compiled, deduplicated base dictionary. Paths is safe for
// concurrent use.
type Compiler struct {
	base []string
}

// NewCompiler expands entries according to opts.
func NewCompiler(entries []Entry, opts Options) (*Compiler, error) {
	exts := normalizeExtensions(opts.Extensions)
	excluded := extensionSet(opts.ExcludeExtensions)
	selected := extensionSet(exts)

	seen := make(map[string]struct{}, len(entries))
	var base []string
	add := func(p string) {
		p = applyCase(strings.TrimLeft(p, "/"), opts.Case)
		if p == "" {
			return
		}
		if ext := extensionOf(p); ext != "" {
			if _, ok := excluded[strings.ToLower(ext)]; ok {
				return
			}
			if opts.OnlySelected {
				if _, ok := selected[strings.ToLower(ext)]; !ok {
					return
				}
			}
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		base = append(base, p)
	}
	emit := func(v string) {
		add(v)
		for _, pre := range opts.Prefixes {
			add(pre + v)
		}
		if strings.HasSuffix(v, "/") {
			return
		}
		for _, suf := range opts.Suffixes {
			add(v + suf)
		}
	}

	for _, e := range entries {
		line := string(e)
		switch {
		case e.HasPlaceholder():
			if len(exts) == 0 {
				return nil, &CompilationError{Entry: e, Err: ErrInvalidPlaceholder}
			}
			for _, ext := range exts {
				emit(strings.ReplaceAll(line, Placeholder, ext))
			}
		case opts.ForceExtensions && len(exts) > 0 && !strings.HasSuffix(line, "/") && extensionOf(line) == "":
			emit(line)
			for _, ext := range exts {
				emit(line + "." + ext)
			}
			emit(line + "/")
		default:
			emit(line)
		}
	}

	if len(base) == 0 {
		return nil, &CompilationError{Err: ErrEmptyWordlist}
	}
	return &Compiler{base: base}, nil
}

// Compile is a one-shot NewCompiler + Paths.
func Compile(entries []Entry, opts Options, prefix string) ([]string, error) {
	c, err := NewCompiler(entries, opts)
	if err != nil {
		return nil, err
	}
	return c.Paths(prefix), nil
}

// Len returns the number of paths per directory.
func (c *Compiler) Len() int { return len(c.base) }

// Paths returns the compiled paths under prefix, in dictionary order.
func (c *Compiler) Paths(prefix string) []string {
	prefix = strings.Trim(prefix, "/")
	out := make([]string, len(c.base))
	if prefix == "" {
		copy(out, c.base)
		return out
	}
	for i, p := range c.base {
		out[i] = prefix + "/" + p
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range normalizeExtensions(exts) {
		set[strings.ToLower(e)] = struct{}{}
	}
	return set
}

// extensionOf returns the extension of the last path segment without the
// dot. Dotfiles such as ".htaccess" have none.
func extensionOf(p string) string {
	if strings.HasSuffix(p, "/") {
		return ""
	}
	seg := path.Base(p)
	idx := strings.LastIndex(seg, ".")
	if idx <= 0 || idx == len(seg)-1 {
		return ""
	}
	return seg[idx+1:]
}

func applyCase(s string, c Case) string {
	switch c {
	case CaseLower:
		return strings.ToLower(s)
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseCapital:
		if s == "" {
			return s
		}
		r, size := utf8.DecodeRuneInString(s)
		return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
	}
	return s
}
