package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidWithTarget(t *testing.T) {
	o := Default()
	o.URL = "http://example.com"
	assert.NoError(t, o.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no target", func(o *Options) { o.URL = "" }},
		{"zero threads", func(o *Options) { o.Threads = 0 }},
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }},
		{"bad case", func(o *Options) { o.Case = "title" }},
		{"bad mode", func(o *Options) { o.RecursionMode = "sideways" }},
		{"bad format", func(o *Options) { o.OutputFormat = "xml" }},
		{"size range", func(o *Options) { o.MinSize, o.MaxSize = 100, 10 }},
		{"only selected without extensions", func(o *Options) { o.OnlySelected = true }},
		{"auth without type", func(o *Options) { o.Auth = "a:b"; o.AuthType = "" }},
		{"bad auth type", func(o *Options) { o.Auth = "a:b"; o.AuthType = "ntlm" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Default()
			o.URL = "http://example.com"
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestBreakerThreshold(t *testing.T) {
	o := Default()
	o.MaxErrors = 20
	assert.Equal(t, 20, o.BreakerThreshold())
	o.ExitOnError = true
	assert.Equal(t, 1, o.BreakerThreshold())
}

func TestLoadFileOverlays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirsweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://example.com
threads: 50
timeout: 3s
extensions: [php, html]
exclude_status: [500, 503]
headers:
  X-Api-Key: secret
recursive: true
`), 0o644))

	o := Default()
	require.NoError(t, LoadFile(path, &o))
	assert.Equal(t, "https://example.com", o.URL)
	assert.Equal(t, 50, o.Threads)
	assert.Equal(t, 3*time.Second, o.Timeout)
	assert.Equal(t, []string{"php", "html"}, o.Extensions)
	assert.Equal(t, []int{500, 503}, o.ExcludeStatus)
	assert.Equal(t, "secret", o.Headers["X-Api-Key"])
	assert.True(t, o.Recursive)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, o.MaxDepth)
	assert.True(t, o.SmartFilter)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thread: 5\n"), 0o644))
	o := Default()
	assert.Error(t, LoadFile(path, &o))
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	o := Default()
	assert.NoError(t, LoadFile(path, &o))
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.yaml", ConfigPath([]string{"-u", "x", "--config", "a.yaml"}))
	assert.Equal(t, "b.yaml", ConfigPath([]string{"--config=b.yaml"}))
	assert.Equal(t, "c.yaml", ConfigPath([]string{"-c", "c.yaml", "-t", "5"}))
	assert.Equal(t, "", ConfigPath([]string{"-u", "x"}))
	assert.Equal(t, "", ConfigPath([]string{"--", "--config", "x"}))
}
