package netutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTargets(t *testing.T) {
	tests := []struct {
		name   string
		cidr   string
		ports  string
		scheme string
		want   []string
	}{
		{"single ip", "10.0.0.5", "", "http", []string{"http://10.0.0.5"}},
		{"slash 30 skips edges", "10.0.0.0/30", "", "http", []string{"http://10.0.0.1", "http://10.0.0.2"}},
		{"slash 31 keeps both", "10.0.0.0/31", "", "https", []string{"https://10.0.0.0", "https://10.0.0.1"}},
		{"ports", "192.168.1.1/32", "80,8080", "http", []string{"http://192.168.1.1", "http://192.168.1.1:8080"}},
		{"unmasked input", "10.0.0.3/30", "443", "https", []string{"https://10.0.0.1", "https://10.0.0.2"}},
		{"ipv6", "::1", "8443", "https", []string{"https://[::1]:8443"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTargets(tt.cidr, tt.ports, tt.scheme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandTargetsSlash24(t *testing.T) {
	got, err := ExpandTargets("10.1.2.0/24", "", "http")
	require.NoError(t, err)
	assert.Len(t, got, 254)
	assert.Equal(t, "http://10.1.2.1", got[0])
	assert.Equal(t, "http://10.1.2.254", got[253])
}

func TestExpandTargetsErrors(t *testing.T) {
	for _, c := range []struct{ cidr, ports string }{
		{"not-an-ip", ""},
		{"10.0.0.0/8", ""},
		{"10.0.0.1", "http"},
		{"10.0.0.1", "70000"},
	} {
		_, err := ExpandTargets(c.cidr, c.ports, "http")
		assert.Error(t, err, "%s ports=%s", c.cidr, c.ports)
	}
}

func TestReadURLs(t *testing.T) {
	urls, err := ReadURLs(strings.NewReader("# targets\nhttp://a\n\n  http://b  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, urls)
}
