package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/reqparse"
)

// requestSkipHeaders are taken from the URL or managed by the transport.
var requestSkipHeaders = map[string]bool{
	"host":            true,
	"content-length":  true,
	"accept-encoding": true,
	"connection":      true,
}

// applyRequestFile merges a raw request into o. Explicit flags and headers
// already set win over values from the file.
func applyRequestFile(f *pflag.FlagSet, o *config.Options) error {
	parsed, err := reqparse.ParseFile(o.RequestFile)
	if err != nil {
		return fmt.Errorf("parsing request file: %w", err)
	}
	if !f.Changed("url") && o.URL == "" {
		o.URL = parsed.URL
	}
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	for key, val := range parsed.Headers {
		k := strings.ToLower(key)
		switch {
		case requestSkipHeaders[k]:
			continue
		case k == "user-agent":
			if !f.Changed("user-agent") && o.UserAgent == "" {
				o.UserAgent = val
			}
			continue
		case k == "cookie":
			if !f.Changed("cookie") && o.Cookie == "" {
				o.Cookie = val
			}
			continue
		}
		if _, exists := o.Headers[key]; !exists {
			o.Headers[key] = val
		}
	}
	if parsed.Method != http.MethodGet && !f.Changed("methods") && len(o.Methods) == 0 {
		o.Methods = []string{parsed.Method}
	}
	if !f.Changed("data") && o.Data == "" {
		o.Data = parsed.Body
	}
	return nil
}
