package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	wl := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(wl, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return wl
}

func TestLoadEmbedded(t *testing.T) {
	entries, err := Load("")
	if err != nil {
		t.Fatalf("Load embedded: %v", err)
	}
	if len(entries) < 100 {
		t.Errorf("expected at least 100 entries in embedded wordlist, got %d", len(entries))
	}
	for _, e := range entries {
		if strings.HasPrefix(string(e), "#") {
			t.Errorf("found comment line in loaded wordlist: %q", e)
		}
		if strings.TrimSpace(string(e)) == "" {
			t.Error("found empty line in loaded wordlist")
		}
	}
	// The embedded list must compile without extensions configured.
	if _, err := NewCompiler(entries, Options{}); err != nil {
		t.Fatalf("embedded wordlist does not compile: %v", err)
	}
}

func TestLoadSkipsComments(t *testing.T) {
	wl := writeList(t, "# comment\nadmin\n\n# another\nlogin\n")
	entries, err := Load(wl)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries (comments/blanks skipped), got %d: %v", len(entries), entries)
	}
}

func TestLoadFilesConcatenates(t *testing.T) {
	a := writeList(t, "admin\nlogin\n")
	b := writeList(t, "login\nbackup\n")
	entries, err := LoadFiles([]string{a, b})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	want := []Entry{"admin", "login", "login", "backup"}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("LoadFiles = %v, want %v", entries, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing wordlist")
	}
}

func TestCompileWithExtensions(t *testing.T) {
	paths, err := Compile([]Entry{"admin", "index.%EXT%", "login"}, Options{Extensions: []string{"php", ".html"}}, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"admin", "index.php", "index.html", "login"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Compile = %v, want %v", paths, want)
	}
}

func TestCompileForceExtensions(t *testing.T) {
	paths, err := Compile([]Entry{"admin", "robots.txt", "static/"}, Options{
		Extensions:      []string{"php"},
		ForceExtensions: true,
	}, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"admin", "admin.php", "admin/", "robots.txt", "static/"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Compile = %v, want %v", paths, want)
	}
}

func TestCompileDeduplicationKeepsFirstOccurrence(t *testing.T) {
	paths, err := Compile([]Entry{"login", "admin", "login", "index.%EXT%", "index.php", "admin"},
		Options{Extensions: []string{"php"}}, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"login", "admin", "index.php"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Compile = %v, want %v", paths, want)
	}
}

func TestCompileNoDuplicatesProperty(t *testing.T) {
	inputs := [][]Entry{
		{"a", "b", "a", "c", "b"},
		{"x.%EXT%", "x.php", "x.%EXT%", "X.PHP"},
		{"/lead", "lead", "lead/", "/lead/"},
	}
	for _, in := range inputs {
		paths, err := Compile(in, Options{Extensions: []string{"php", "php"}, Prefixes: []string{"_"}, Case: CaseLower}, "dir")
		if err != nil {
			t.Fatalf("Compile(%v): %v", in, err)
		}
		seen := make(map[string]bool)
		for _, p := range paths {
			if seen[p] {
				t.Errorf("Compile(%v): duplicate path %q in %v", in, p, paths)
			}
			seen[p] = true
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		opts    Options
		want    error
	}{
		{name: "empty", entries: nil, want: ErrEmptyWordlist},
		{name: "only excluded", entries: []Entry{"a.bak"}, opts: Options{ExcludeExtensions: []string{"bak"}}, want: ErrEmptyWordlist},
		{name: "placeholder without extensions", entries: []Entry{"admin", "index.%EXT%"}, want: ErrInvalidPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler(tt.entries, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewCompiler err = %v, want %v", err, tt.want)
			}
			var cerr *CompilationError
			if !errors.As(err, &cerr) {
				t.Errorf("expected *CompilationError, got %T", err)
			}
		})
	}
}

func TestCompilePrefixesSuffixesAndCase(t *testing.T) {
	paths, err := Compile([]Entry{"Admin", "files/"}, Options{
		Prefixes: []string{"."},
		Suffixes: []string{"~", ".bak"},
		Case:     CaseUpper,
	}, "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{"ADMIN", ".ADMIN", "ADMIN~", "ADMIN.BAK", "FILES/", ".FILES/"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Compile = %v, want %v", paths, want)
	}
}

func TestCompileCapital(t *testing.T) {
	paths, err := Compile([]Entry{"aDMIN"}, Options{Case: CaseCapital}, "")
	if err != nil {
		t.Fatal(err)
	}
	if paths[0] != "Admin" {
		t.Errorf("capital = %q, want Admin", paths[0])
	}
}

func TestCompileOnlySelectedAndExclude(t *testing.T) {
	paths, err := Compile([]Entry{"a.php", "b.asp", "c", "d.bak"}, Options{
		Extensions:        []string{"php", "bak"},
		OnlySelected:      true,
		ExcludeExtensions: []string{".bak"},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.php", "c"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Compile = %v, want %v", paths, want)
	}
}

func TestCompilerPathsPrefix(t *testing.T) {
	c, err := NewCompiler([]Entry{"/admin", "login"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"admin", "login"}},
		{"api/", []string{"api/admin", "api/login"}},
		{"/a/b", []string{"a/b/admin", "a/b/login"}},
	}
	for _, tt := range tests {
		got := c.Paths(tt.prefix)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Paths(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}
