package runner

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/filter"
	"github.com/maxvaer/dirsweep/internal/policy"
	"github.com/maxvaer/dirsweep/internal/recursion"
	"github.com/maxvaer/dirsweep/internal/scanner"
	"github.com/maxvaer/dirsweep/internal/wordlist"
)

func compilerOptions(opts *config.Options) wordlist.Options {
	return wordlist.Options{
		Extensions:        opts.Extensions,
		ForceExtensions:   opts.ForceExtensions,
		ExcludeExtensions: opts.ExcludeExtensions,
		OnlySelected:      opts.OnlySelected,
		Prefixes:          opts.Prefixes,
		Suffixes:          opts.Suffixes,
		Case:              wordlist.Case(strings.ToLower(opts.Case)),
	}
}

func requesterConfig(opts *config.Options, target string) scanner.RequesterConfig {
	return scanner.RequesterConfig{
		URL:             target,
		Scheme:          opts.Scheme,
		Timeout:         opts.Timeout,
		FollowRedirects: opts.FollowRedirects,
		Headers:         opts.Headers,
		UserAgent:       opts.UserAgent,
		RandomAgent:     opts.RandomAgent,
		Cookie:          opts.Cookie,
		Auth:            opts.Auth,
		AuthType:        opts.AuthType,
		Data:            opts.Data,
		Proxy:           opts.Proxy,
		Threads:         opts.Threads,
	}
}

func classifierConfig(opts *config.Options) filter.Config {
	return filter.Config{
		IncludeStatus:   opts.IncludeStatus,
		ExcludeStatus:   opts.ExcludeStatus,
		ExcludeSizes:    opts.ExcludeSize,
		MinSize:         opts.MinSize,
		MaxSize:         opts.MaxSize,
		ExcludeTexts:    opts.ExcludeBody,
		ExcludeRegex:    opts.ExcludeRegex,
		MatchText:       opts.MatchBody,
		ExcludeRedirect: opts.ExcludeRedirect,
		Calibrate:       opts.SmartFilter,
		Probes:          opts.CalibrationProbes,
		Threshold:       opts.SmartFilterThreshold,
	}
}

func retryConfig(opts *config.Options) policy.RetryConfig {
	cfg := policy.DefaultRetryConfig()
	cfg.MaxRetries = opts.Retries
	if opts.RetryDelay > 0 {
		cfg.InitialDelay = opts.RetryDelay
	}
	if strings.EqualFold(opts.RetryStrategy, "constant") {
		cfg.Strategy = policy.Constant
	}
	return cfg
}

func limiterConfig(opts *config.Options) policy.LimiterConfig {
	return policy.LimiterConfig{
		Delay:   opts.Delay,
		Jitter:  opts.Jitter,
		MaxRate: opts.MaxRate,
	}
}

// recursionConfig maps the recursion flags. Without --recursive the depth
// bound is zero, so only the seed directories are scanned.
func recursionConfig(opts *config.Options, log logrus.FieldLogger) (recursion.Config, error) {
	mode, err := recursion.ParseMode(opts.RecursionMode)
	if err != nil {
		return recursion.Config{}, err
	}
	cfg := recursion.Config{
		Mode:           mode,
		StatusCodes:    opts.RecursionStatus,
		ExcludeSubdirs: opts.ExcludeSubdirs,
		AlwaysRecurse:  opts.AlwaysRecurse,
		Log:            log,
	}
	if opts.Recursive || len(opts.AlwaysRecurse) > 0 {
		cfg.MaxDepth = opts.MaxDepth
	}
	return cfg, nil
}
