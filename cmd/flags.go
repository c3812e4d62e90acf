package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/dirsweep/internal/config"
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "urls-file", "request-file", "cidr", "ports", "scheme", "subdirs"}},
	{"DICTIONARY", []string{"wordlist", "extensions", "force-extensions", "exclude-extensions", "only-selected", "prefixes", "suffixes", "case"}},
	{"RECURSION", []string{"recursive", "recursion-mode", "max-depth", "recursion-status", "exclude-subdirs", "always-recurse"}},
	{"MATCHERS", []string{"include-status", "match-body"}},
	{"FILTERS", []string{"exclude-status", "exclude-size", "min-size", "max-size", "exclude-body", "exclude-regex", "exclude-redirect", "smart-filter", "smart-filter-threshold", "calibration-probes"}},
	{"RATE-LIMIT", []string{"threads", "target-concurrency", "timeout", "delay", "jitter", "max-rate", "max-pending", "adaptive-throttle", "max-time"}},
	{"ERRORS", []string{"retries", "retry-strategy", "retry-delay", "max-errors", "error-window", "exit-on-error", "skip-on-status"}},
	{"HTTP", []string{"header", "user-agent", "random-agent", "cookie", "auth", "auth-type", "data", "proxy", "follow-redirects", "methods"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "sort", "tree", "show-all", "on-result"}},
	{"DEBUG", []string{"verbose", "log-level", "log-file", "metrics-addr"}},
	{"CONFIGURATION", []string{"config", "resume-file"}},
}

// registerFlags binds every flag to o, using the current values of o as
// defaults so that a loaded config file shows through.
func registerFlags(f *pflag.FlagSet, o *config.Options) {
	// Target
	f.StringVarP(&o.URL, "url", "u", o.URL, "Target URL")
	f.StringVarP(&o.URLsFile, "urls-file", "l", o.URLsFile, "File with one URL per line (- for stdin)")
	f.StringVarP(&o.RequestFile, "request-file", "r", o.RequestFile, "Raw HTTP request file (e.g. Burp Suite export)")
	f.StringVar(&o.CIDRTargets, "cidr", o.CIDRTargets, "CIDR range to scan (e.g. 192.168.1.0/24)")
	f.StringVar(&o.Ports, "ports", o.Ports, "Ports for CIDR targets (comma-separated, e.g. 80,443,8080)")
	f.StringVar(&o.Scheme, "scheme", o.Scheme, "Scheme for targets given without one: http, https")
	f.StringSliceVar(&o.Subdirs, "subdirs", o.Subdirs, "Additional directories to scan from the start")

	// Dictionary
	f.StringSliceVarP(&o.Wordlists, "wordlist", "w", o.Wordlists, "Wordlist paths, - for stdin (default: built-in)")
	f.StringSliceVarP(&o.Extensions, "extensions", "e", o.Extensions, "Extensions substituted for %EXT% (e.g. php,html,js)")
	f.BoolVarP(&o.ForceExtensions, "force-extensions", "f", o.ForceExtensions, "Append extensions to every wordlist entry")
	f.StringSliceVarP(&o.ExcludeExtensions, "exclude-extensions", "X", o.ExcludeExtensions, "Drop entries with these extensions")
	f.BoolVar(&o.OnlySelected, "only-selected", o.OnlySelected, "Drop entries whose extension is not in --extensions")
	f.StringSliceVar(&o.Prefixes, "prefixes", o.Prefixes, "Prefixes added to every entry")
	f.StringSliceVar(&o.Suffixes, "suffixes", o.Suffixes, "Suffixes added to every non-directory entry")
	f.StringVar(&o.Case, "case", o.Case, "Re-case entries: lower, upper, capital")

	// Recursion
	f.BoolVar(&o.Recursive, "recursive", o.Recursive, "Enable recursive scanning")
	f.StringVar(&o.RecursionMode, "recursion-mode", o.RecursionMode, "Directory detection: slash, auto, force, deep")
	f.IntVarP(&o.MaxDepth, "max-depth", "R", o.MaxDepth, "Maximum recursion depth")
	f.Var(newIntSlice(&o.RecursionStatus), "recursion-status", "Only recurse on these status codes")
	f.StringSliceVar(&o.ExcludeSubdirs, "exclude-subdirs", o.ExcludeSubdirs, "Never recurse into these directories")
	f.StringSliceVar(&o.AlwaysRecurse, "always-recurse", o.AlwaysRecurse, "Always recurse into these paths when found")

	// Matchers and filters
	f.VarP(newIntSlice(&o.IncludeStatus), "include-status", "i", "Only show these status codes (comma-separated)")
	f.StringVar(&o.MatchBody, "match-body", o.MatchBody, "Only show responses containing this string")
	f.VarP(newIntSlice(&o.ExcludeStatus), "exclude-status", "x", "Hide these status codes (comma-separated)")
	f.Var(newIntSlice(&o.ExcludeSize), "exclude-size", "Hide responses of these sizes (comma-separated)")
	f.Int64Var(&o.MinSize, "min-size", o.MinSize, "Hide responses smaller than this many bytes")
	f.Int64Var(&o.MaxSize, "max-size", o.MaxSize, "Hide responses larger than this many bytes")
	f.StringSliceVar(&o.ExcludeBody, "exclude-body", o.ExcludeBody, "Hide responses containing any of these strings")
	f.StringVar(&o.ExcludeRegex, "exclude-regex", o.ExcludeRegex, "Hide responses whose body matches this regex")
	f.StringVar(&o.ExcludeRedirect, "exclude-redirect", o.ExcludeRedirect, "Hide redirects whose Location contains this string")
	f.BoolVar(&o.SmartFilter, "smart-filter", o.SmartFilter, "Calibrate each directory to filter wildcard responses")
	f.IntVar(&o.SmartFilterThreshold, "smart-filter-threshold", o.SmartFilterThreshold, "Size tolerance in bytes for fuzzy calibration matches")
	f.IntVar(&o.CalibrationProbes, "calibration-probes", o.CalibrationProbes, "Random paths requested per directory during calibration")

	// Performance
	f.IntVarP(&o.Threads, "threads", "t", o.Threads, "Number of concurrent workers per target")
	f.IntVar(&o.TargetConcurrency, "target-concurrency", o.TargetConcurrency, "Targets scanned at the same time")
	f.DurationVar(&o.Timeout, "timeout", o.Timeout, "HTTP request timeout")
	f.DurationVar(&o.Delay, "delay", o.Delay, "Delay before each request per worker")
	f.DurationVar(&o.Jitter, "jitter", o.Jitter, "Random extra delay up to this duration")
	f.Float64Var(&o.MaxRate, "max-rate", o.MaxRate, "Maximum requests per second per target (0 = unlimited)")
	f.IntVar(&o.MaxPending, "max-pending", o.MaxPending, "Bound on queued jobs (default 4x threads)")
	f.BoolVar(&o.AdaptiveThrottle, "adaptive-throttle", o.AdaptiveThrottle, "Auto back-off on 429/503 and connection errors")
	f.DurationVar(&o.MaxTime, "max-time", o.MaxTime, "Stop a target scan after this long (0 = no limit)")

	// Errors
	f.IntVar(&o.Retries, "retries", o.Retries, "Retries per request on transport errors")
	f.StringVar(&o.RetryStrategy, "retry-strategy", o.RetryStrategy, "Backoff between retries: exponential, constant")
	f.DurationVar(&o.RetryDelay, "retry-delay", o.RetryDelay, "Initial delay between retries")
	f.IntVar(&o.MaxErrors, "max-errors", o.MaxErrors, "Abort a target after this many failed requests (0 = never)")
	f.DurationVar(&o.ErrorWindow, "error-window", o.ErrorWindow, "Only count errors within this window (0 = whole scan)")
	f.BoolVar(&o.ExitOnError, "exit-on-error", o.ExitOnError, "Abort a target on the first failed request")
	f.Var(newIntSlice(&o.SkipOnStatus), "skip-on-status", "Abort a target when one of these status codes is seen")

	// HTTP
	f.StringSliceP("header", "H", nil, "Custom headers (Key: Value)")
	f.StringVar(&o.UserAgent, "user-agent", o.UserAgent, "Custom User-Agent string")
	f.BoolVar(&o.RandomAgent, "random-agent", o.RandomAgent, "Pick a random User-Agent per request")
	f.StringVar(&o.Cookie, "cookie", o.Cookie, "Cookie header value")
	f.StringVar(&o.Auth, "auth", o.Auth, "Credentials: user:pass for basic, token for bearer")
	f.StringVar(&o.AuthType, "auth-type", o.AuthType, "Authentication type: basic, bearer")
	f.StringVarP(&o.Data, "data", "d", o.Data, "Request body")
	f.StringVar(&o.Proxy, "proxy", o.Proxy, "HTTP/SOCKS5 proxy URL")
	f.BoolVar(&o.FollowRedirects, "follow-redirects", o.FollowRedirects, "Follow HTTP redirects")
	f.StringSliceVar(&o.Methods, "methods", o.Methods, "HTTP methods to try per path (e.g. GET,POST,PUT)")

	// Output
	f.StringVarP(&o.OutputFile, "output", "o", o.OutputFile, "Output file path")
	f.StringVar(&o.OutputFormat, "format", o.OutputFormat, "Output format: text, json, csv")
	f.BoolVarP(&o.Quiet, "quiet", "q", o.Quiet, "Minimal output")
	f.BoolVar(&o.NoColor, "no-color", o.NoColor, "Disable colored output")
	f.StringVar(&o.SortBy, "sort", o.SortBy, "Sort results: status, path, size (buffers until scan completes)")
	f.BoolVar(&o.Tree, "tree", o.Tree, "Print directory tree summary after scan")
	f.BoolVar(&o.ShowAll, "show-all", o.ShowAll, "Also report filtered and failed requests")
	f.StringVar(&o.OnResultCmd, "on-result", o.OnResultCmd, "Shell command to run for each result (receives JSON on stdin)")

	// Debug
	f.CountVarP(&o.Verbosity, "verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: trace, debug, info, warn, error")
	f.StringVar(&o.LogFile, "log-file", o.LogFile, "Append every request to this file")
	f.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "Serve Prometheus metrics on this address (e.g. :9090)")

	// Configuration
	f.StringP("config", "c", "", "YAML config file; flags override its values")
	f.StringVar(&o.ResumeFile, "resume-file", o.ResumeFile, "File to save/load scan progress for resume")
}

// applyHeaderFlags merges -H values over headers from the config file.
func applyHeaderFlags(f *pflag.FlagSet) error {
	headers, _ := f.GetStringSlice("header")
	if len(headers) == 0 {
		return nil
	}
	if opts.Headers == nil {
		opts.Headers = make(map[string]string, len(headers))
	}
	for _, h := range headers {
		key, val, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
		}
		opts.Headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return nil
}

// intSliceValue implements pflag.Value for comma-separated int slices. The
// first Set replaces any default from the config file.
type intSliceValue struct {
	target  *[]int
	changed bool
}

func newIntSlice(target *[]int) *intSliceValue { return &intSliceValue{target: target} }

func (v *intSliceValue) String() string {
	if v.target == nil || len(*v.target) == 0 {
		return ""
	}
	parts := make([]string, len(*v.target))
	for i, val := range *v.target {
		parts[i] = strconv.Itoa(val)
	}
	return strings.Join(parts, ",")
}

func (v *intSliceValue) Set(s string) error {
	if !v.changed {
		*v.target = nil
		v.changed = true
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", p, err)
		}
		*v.target = append(*v.target, n)
	}
	return nil
}

func (v *intSliceValue) Type() string { return "ints" }

func printHelp(cmd *cobra.Command, _ []string) {
	w := os.Stderr
	fmt.Fprint(w, helpBanner(cmd.Version))
	fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
	fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
	fmt.Fprintf(w, "\nFlags:\n")
	for _, g := range helpGroups {
		fmt.Fprintf(w, "\n%s:\n", pterm.Bold.Sprint(g.title))
		for _, name := range g.flags {
			if f := cmd.Flags().Lookup(name); f != nil {
				fmt.Fprintln(w, formatFlag(f))
			}
		}
	}
	fmt.Fprintln(w)
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	switch typ {
	case "bool", "count":
	default:
		left += " " + typ
	}

	const col = 38
	if len(left) < col {
		left += strings.Repeat(" ", col-len(left))
	}

	right := f.Usage
	switch def := f.DefValue; def {
	case "", "false", "0", "0s", "[]":
	default:
		right += fmt.Sprintf(" (default %s)", def)
	}
	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf("\n  %s %s\n\n", pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("dirsweep"), ver)
}
