package filter

import (
	"testing"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

func TestStatusPolicy_Include(t *testing.T) {
	p := NewStatusPolicy([]int{200, 301}, nil)

	if !p.Allowed(200) {
		t.Error("200 should pass include policy")
	}
	if p.Allowed(404) {
		t.Error("404 should be rejected by include policy")
	}
}

func TestStatusPolicy_ExcludeWins(t *testing.T) {
	p := NewStatusPolicy([]int{200, 403}, []int{403, 500})

	if !p.Allowed(200) {
		t.Error("200 should pass")
	}
	if p.Allowed(403) {
		t.Error("403 is in both sets; exclude must take precedence")
	}
}

func TestStatusPolicy_Default(t *testing.T) {
	p := NewStatusPolicy(nil, nil)
	for _, code := range DefaultInclude {
		if !p.Allowed(code) {
			t.Errorf("default policy should allow %d", code)
		}
	}
	for _, code := range []int{404, 500, 400, 429} {
		if p.Allowed(code) {
			t.Errorf("default policy should reject %d", code)
		}
	}
}

func TestSizeFilter(t *testing.T) {
	f := NewSizeFilter([]int{0, 1234})

	r := &scanner.Response{ContentLength: 1234}
	if !f.ShouldFilter(r) {
		t.Error("size 1234 should be filtered")
	}

	r.ContentLength = 5678
	if f.ShouldFilter(r) {
		t.Error("size 5678 should pass")
	}
}

func TestSizeRangeFilter(t *testing.T) {
	tests := []struct {
		min, max int64
		size     int64
		want     bool
	}{
		{10, 0, 5, true},
		{10, 0, 10, false},
		{0, 100, 101, true},
		{0, 100, 100, false},
		{10, 100, 50, false},
		{0, 0, 1 << 20, false},
	}
	for _, tt := range tests {
		f := NewSizeRangeFilter(tt.min, tt.max)
		if got := f.ShouldFilter(&scanner.Response{ContentLength: tt.size}); got != tt.want {
			t.Errorf("range [%d,%d] size %d: got %v, want %v", tt.min, tt.max, tt.size, got, tt.want)
		}
	}
}

func TestBodyFilters(t *testing.T) {
	resp := scanner.NewResponse(200, []byte("<h1>Page not found</h1>"))

	if !NewBodyExcludeFilter("nope", "not found").ShouldFilter(resp) {
		t.Error("exclude text should filter")
	}
	if NewBodyExcludeFilter("welcome").ShouldFilter(resp) {
		t.Error("absent exclude text should pass")
	}
	if NewBodyMatchFilter("Page").ShouldFilter(resp) {
		t.Error("match text present should pass")
	}
	if !NewBodyMatchFilter("Dashboard").ShouldFilter(resp) {
		t.Error("match text absent should filter")
	}

	re, err := NewBodyRegexFilter(`(?i)not\s+found`)
	if err != nil {
		t.Fatal(err)
	}
	if !re.ShouldFilter(resp) {
		t.Error("regex should filter")
	}
	if _, err := NewBodyRegexFilter("("); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestRedirectFilter(t *testing.T) {
	f, err := NewRedirectFilter(`/login`)
	if err != nil {
		t.Fatal(err)
	}
	if !f.ShouldFilter(&scanner.Response{StatusCode: 302, RedirectURL: "https://example.com/login?next=/x"}) {
		t.Error("redirect to login should be filtered")
	}
	if f.ShouldFilter(&scanner.Response{StatusCode: 301, RedirectURL: "/admin/"}) {
		t.Error("redirect to /admin/ should pass")
	}
	if f.ShouldFilter(&scanner.Response{StatusCode: 200}) {
		t.Error("non-redirect should pass")
	}
}

func TestChain_ShortCircuits(t *testing.T) {
	chain := NewChain()
	chain.Add(NewSizeFilter([]int{0}))
	chain.Add(NewSizeRangeFilter(10, 0))

	// Size filter should catch this first.
	r := &scanner.Response{StatusCode: 200, ContentLength: 0}
	filtered, reason := chain.Apply(r)
	if !filtered {
		t.Error("expected chain to filter")
	}
	if reason != "size" {
		t.Errorf("expected reason 'size', got %q", reason)
	}
	if chain.Len() != 2 {
		t.Errorf("Len = %d", chain.Len())
	}
}
