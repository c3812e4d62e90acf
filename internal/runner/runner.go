// Package runner wires the scan engine to the CLI: it resolves targets,
// builds the per-target engine and drives output, progress and resume.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/hook"
	"github.com/maxvaer/dirsweep/internal/logging"
	"github.com/maxvaer/dirsweep/internal/metrics"
	"github.com/maxvaer/dirsweep/internal/netutil"
	"github.com/maxvaer/dirsweep/internal/output"
	"github.com/maxvaer/dirsweep/internal/scanner"
	"github.com/maxvaer/dirsweep/internal/wordlist"
)

// ErrAllTargetsFailed is returned when no target could be scanned.
var ErrAllTargetsFailed = errors.New("no target could be scanned")

// env is the state shared by all target scans of one run.
type env struct {
	opts     *config.Options
	log      *logrus.Logger
	reqLog   logrus.FieldLogger
	compiler *wordlist.Compiler
	metrics  *metrics.Recorder
	hook     *hook.Runner
	pauser   *scanner.Pauser
	progress *output.Progress
	status   io.Writer // human-facing status lines
	clear    string    // erases the progress line before other output
	multi    bool

	mu  sync.Mutex // guards out
	out output.Writer
}

// Run executes the full scan pipeline. It supports multiple targets via
// -l (URL list file) and --cidr; up to TargetConcurrency targets are
// scanned at once and a failing target never stops the others.
func Run(ctx context.Context, opts *config.Options) error {
	log, err := logging.New(logging.Options{
		Level:     opts.LogLevel,
		Verbosity: opts.Verbosity,
		NoColor:   opts.NoColor,
	})
	if err != nil {
		return err
	}

	targets, err := resolveTargets(opts)
	if err != nil {
		return err
	}

	entries, err := wordlist.LoadFiles(opts.Wordlists)
	if err != nil {
		return fmt.Errorf("loading wordlist: %w", err)
	}
	compiler, err := wordlist.NewCompiler(entries, compilerOptions(opts))
	if err != nil {
		return err
	}

	e := &env{
		opts:     opts,
		log:      log,
		compiler: compiler,
		metrics:  metrics.New(),
		status:   os.Stderr,
		multi:    len(targets) > 1,
	}
	if opts.Quiet {
		e.status = io.Discard
	}

	if opts.LogFile != "" {
		reqLog, closer, err := logging.RequestLog(opts.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		e.reqLog = reqLog
	}
	if opts.MetricsAddr != "" {
		if err := e.metrics.Serve(ctx, opts.MetricsAddr, log); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
	}
	if opts.OnResultCmd != "" {
		e.hook = hook.NewRunner(opts.OnResultCmd, log)
	}

	e.out, err = output.New(output.Options{
		Format:  opts.OutputFormat,
		File:    opts.OutputFile,
		NoColor: opts.NoColor,
		Quiet:   opts.Quiet,
		SortBy:  opts.SortBy,
	})
	if err != nil {
		return err
	}
	defer e.out.Close()

	if !opts.Quiet {
		printBanner(os.Stderr, opts, targets, compiler.Len())
	}
	if err := e.out.WriteHeader(); err != nil {
		return err
	}

	pauser, restore := startStdinToggle(opts.Quiet)
	defer restore()
	e.pauser = pauser
	showProgress := !opts.Quiet && term.IsTerminal(int(os.Stderr.Fd()))
	if showProgress {
		e.clear = "\r\033[K"
	}
	e.progress = output.NewProgress(os.Stderr, pauser, !showProgress)
	e.progress.Start()

	start := time.Now()
	scans := make([]*output.ScanStats, len(targets))
	var (
		failedMu sync.Mutex
		failed   int
	)
	var g errgroup.Group
	g.SetLimit(max(opts.TargetConcurrency, 1))
	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if e.multi {
				e.statusf("[*] Target %d/%d: %s\n", i+1, len(targets), target)
			}
			st, err := e.scanTarget(ctx, i, target)
			if err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				e.statusf("[!] Error scanning %s: %v\n", target, err)
				log.WithField("target", target).WithError(err).Debug("target failed")
				return nil
			}
			scans[i] = &st
			return nil
		})
	}
	_ = g.Wait()
	e.progress.Stop()

	stats := output.Stats{Duration: time.Since(start)}
	for _, s := range scans {
		if s != nil {
			stats.Scans = append(stats.Scans, *s)
		}
	}
	if err := e.out.WriteFooter(stats); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if failed == len(targets) {
		return ErrAllTargetsFailed
	}
	return nil
}

// resolveTargets builds the list of URLs to scan from -u, -l, and --cidr.
func resolveTargets(opts *config.Options) ([]string, error) {
	var targets []string
	seen := make(map[string]struct{})
	add := func(t string) {
		t = strings.TrimRight(strings.TrimSpace(t), "/")
		if t == "" {
			return
		}
		if !strings.Contains(t, "://") {
			t = opts.Scheme + "://" + t
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}

	if opts.URL != "" {
		add(opts.URL)
	}
	if opts.URLsFile != "" {
		urls, err := netutil.ReadURLsFile(opts.URLsFile)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			add(u)
		}
	}
	if opts.CIDRTargets != "" {
		cidrURLs, err := netutil.ExpandTargets(opts.CIDRTargets, opts.Ports, opts.Scheme)
		if err != nil {
			return nil, fmt.Errorf("expanding CIDR: %w", err)
		}
		for _, u := range cidrURLs {
			add(u)
		}
	}

	if len(targets) == 0 {
		return nil, errors.New("no targets specified (-u, -l, or --cidr)")
	}
	return targets, nil
}

func (e *env) statusf(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.status, e.clear+format, args...)
}

// report writes one result to the output sink. Only found results are
// shown unless ShowAll is set.
func (e *env) report(r *scanner.ProbeResult) error {
	switch r.Outcome {
	case scanner.Found:
	case scanner.Filtered, scanner.Error:
		if !e.opts.ShowAll {
			return nil
		}
	default:
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opts.OutputFile == "" {
		fmt.Fprint(os.Stderr, e.clear)
	}
	return e.out.WriteResult(r)
}
