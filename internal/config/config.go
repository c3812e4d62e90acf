// Package config holds the parsed scan configuration shared by the CLI,
// the optional YAML config file and the runner.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Options holds all configuration for a dirsweep scan.
type Options struct {
	// Target
	URL         string   `yaml:"url"`
	URLsFile    string   `yaml:"urls_file"`
	CIDRTargets string   `yaml:"cidr"`
	Ports       string   `yaml:"ports"`
	RequestFile string   `yaml:"request_file"` // raw HTTP request file (e.g. Burp export)
	Scheme      string   `yaml:"scheme"`       // for scheme-less targets
	Subdirs     []string `yaml:"subdirs"`      // extra directories scanned from the start

	// Dictionary
	Wordlists         []string `yaml:"wordlists"` // empty = embedded
	Extensions        []string `yaml:"extensions"`
	ForceExtensions   bool     `yaml:"force_extensions"`
	ExcludeExtensions []string `yaml:"exclude_extensions"`
	OnlySelected      bool     `yaml:"only_selected"`
	Prefixes          []string `yaml:"prefixes"`
	Suffixes          []string `yaml:"suffixes"`
	Case              string   `yaml:"case"` // lower, upper, capital

	// Performance
	Threads           int           `yaml:"threads"`
	TargetConcurrency int           `yaml:"target_concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
	Delay             time.Duration `yaml:"delay"`
	Jitter            time.Duration `yaml:"jitter"`
	MaxRate           float64       `yaml:"max_rate"` // requests per second, 0 = unlimited
	MaxPending        int           `yaml:"max_pending"`
	AdaptiveThrottle  bool          `yaml:"adaptive_throttle"`
	MaxTime           time.Duration `yaml:"max_time"`

	// Retry and circuit breaker
	Retries       int           `yaml:"retries"`
	RetryStrategy string        `yaml:"retry_strategy"` // exponential, constant
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxErrors     int           `yaml:"max_errors"` // 0 = never trip
	ErrorWindow   time.Duration `yaml:"error_window"`
	ExitOnError   bool          `yaml:"exit_on_error"`

	// Calibration
	SmartFilter          bool `yaml:"smart_filter"`
	SmartFilterThreshold int  `yaml:"smart_filter_threshold"` // bytes tolerance
	CalibrationProbes    int  `yaml:"calibration_probes"`

	// Status and content filtering
	IncludeStatus   []int    `yaml:"include_status"`
	ExcludeStatus   []int    `yaml:"exclude_status"`
	ExcludeSize     []int    `yaml:"exclude_size"`
	MinSize         int64    `yaml:"min_size"`
	MaxSize         int64    `yaml:"max_size"`
	ExcludeBody     []string `yaml:"exclude_body"`
	ExcludeRegex    string   `yaml:"exclude_regex"`
	MatchBody       string   `yaml:"match_body"`
	ExcludeRedirect string   `yaml:"exclude_redirect"`
	SkipOnStatus    []int    `yaml:"skip_on_status"`

	// Recursion
	Recursive       bool     `yaml:"recursive"`
	RecursionMode   string   `yaml:"recursion_mode"` // slash, auto, force, deep
	MaxDepth        int      `yaml:"max_depth"`
	RecursionStatus []int    `yaml:"recursion_status"`
	ExcludeSubdirs  []string `yaml:"exclude_subdirs"`
	AlwaysRecurse   []string `yaml:"always_recurse"`

	// HTTP
	Methods         []string          `yaml:"methods"`
	Headers         map[string]string `yaml:"headers"`
	UserAgent       string            `yaml:"user_agent"`
	RandomAgent     bool              `yaml:"random_agent"`
	Cookie          string            `yaml:"cookie"`
	Auth            string            `yaml:"auth"`
	AuthType        string            `yaml:"auth_type"` // basic, bearer
	Data            string            `yaml:"data"`
	Proxy           string            `yaml:"proxy"`
	FollowRedirects bool              `yaml:"follow_redirects"`

	// Output
	OutputFile   string `yaml:"output"`
	OutputFormat string `yaml:"format"` // text, json, csv
	Quiet        bool   `yaml:"quiet"`
	NoColor      bool   `yaml:"no_color"`
	SortBy       string `yaml:"sort"`
	Tree         bool   `yaml:"tree"`
	OnResultCmd  string `yaml:"on_result"`
	ShowAll      bool   `yaml:"show_all"` // report filtered and error results too

	// Diagnostics
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	Verbosity   int    `yaml:"-"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Session
	ResumeFile string `yaml:"resume_file"`
}

// Default returns the built-in defaults.
func Default() Options {
	return Options{
		Scheme:               "http",
		Threads:              25,
		TargetConcurrency:    1,
		Timeout:              10 * time.Second,
		Retries:              1,
		RetryStrategy:        "exponential",
		RetryDelay:           250 * time.Millisecond,
		SmartFilter:          true,
		SmartFilterThreshold: 50,
		CalibrationProbes:    3,
		RecursionMode:        "slash",
		MaxDepth:             3,
		OutputFormat:         "text",
	}
}

// Validate checks value ranges and option combinations.
func (o *Options) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	oneOf := func(name, val string, allowed ...string) {
		check(val == "" || slices.Contains(allowed, strings.ToLower(val)),
			"--%s must be one of: %s", name, strings.Join(allowed, ", "))
	}

	check(o.URL != "" || o.URLsFile != "" || o.CIDRTargets != "" || o.RequestFile != "",
		"target required: use -u, -l, --cidr, or --request-file")
	check(o.Threads > 0, "--threads must be positive")
	check(o.TargetConcurrency > 0, "--target-concurrency must be positive")
	check(o.MaxDepth >= 0, "--max-depth must not be negative")
	check(o.Retries >= 0, "--retries must not be negative")
	check(o.MaxErrors >= 0, "--max-errors must not be negative")
	check(o.MaxRate >= 0, "--max-rate must not be negative")
	check(o.MaxSize == 0 || o.MinSize <= o.MaxSize, "--min-size must not exceed --max-size")
	check(!o.OnlySelected || len(o.Extensions) > 0, "--only-selected needs --extensions")
	check(o.Auth == "" || o.AuthType != "", "--auth needs --auth-type")

	oneOf("scheme", o.Scheme, "http", "https")
	oneOf("case", o.Case, "lower", "upper", "capital")
	oneOf("retry-strategy", o.RetryStrategy, "exponential", "constant")
	oneOf("auth-type", o.AuthType, "basic", "bearer")
	oneOf("recursion-mode", o.RecursionMode, "slash", "auto", "force", "deep")
	oneOf("format", o.OutputFormat, "text", "json", "csv")
	oneOf("sort", o.SortBy, "status", "path", "size")

	return errors.Join(errs...)
}

// BreakerThreshold returns the effective circuit-breaker threshold.
func (o *Options) BreakerThreshold() int {
	if o.ExitOnError {
		return 1
	}
	return o.MaxErrors
}
