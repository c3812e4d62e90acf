package filter

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Config holds the classification settings.
type Config struct {
	IncludeStatus   []int // empty = DefaultInclude
	ExcludeStatus   []int
	ExcludeSizes    []int
	MinSize         int64
	MaxSize         int64
	ExcludeTexts    []string
	ExcludeRegex    string
	MatchText       string
	ExcludeRedirect string

	Calibrate bool
	Probes    int // calibration probes per directory, default 3
	Threshold int // fuzzy length tolerance in bytes, default 50

	// Pace blocks before each calibration request so calibration obeys
	// the same delay and rate cap as regular probes. Optional.
	Pace func(ctx context.Context) error
}

// Classifier maps responses to outcomes. It implements scanner.Classifier.
type Classifier struct {
	cfg    Config
	status *StatusPolicy
	chain  *Chain
	cache  *CalibrationCache
	sender scanner.Sender
	state  *scanner.State
	log    logrus.FieldLogger
}

// NewClassifier builds the status policy and content filter chain. sender
// is used for calibration probes and may be nil when calibration is off.
func NewClassifier(cfg Config, sender scanner.Sender, state *scanner.State, log logrus.FieldLogger) (*Classifier, error) {
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 50
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	chain := NewChain()
	if len(cfg.ExcludeSizes) > 0 {
		chain.Add(NewSizeFilter(cfg.ExcludeSizes))
	}
	if cfg.MinSize > 0 || cfg.MaxSize > 0 {
		chain.Add(NewSizeRangeFilter(cfg.MinSize, cfg.MaxSize))
	}
	if len(cfg.ExcludeTexts) > 0 {
		chain.Add(NewBodyExcludeFilter(cfg.ExcludeTexts...))
	}
	if cfg.ExcludeRegex != "" {
		f, err := NewBodyRegexFilter(cfg.ExcludeRegex)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}
	if cfg.MatchText != "" {
		chain.Add(NewBodyMatchFilter(cfg.MatchText))
	}
	if cfg.ExcludeRedirect != "" {
		f, err := NewRedirectFilter(cfg.ExcludeRedirect)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}

	return &Classifier{
		cfg:    cfg,
		status: NewStatusPolicy(cfg.IncludeStatus, cfg.ExcludeStatus),
		chain:  chain,
		cache:  NewCalibrationCache(),
		sender: sender,
		state:  state,
		log:    log,
	}, nil
}

// Calibrate ensures dir has a signature, calibrating it on first use.
func (c *Classifier) Calibrate(ctx context.Context, dir string) {
	if !c.cfg.Calibrate || c.sender == nil {
		return
	}
	c.cache.Ensure(ctx, dir, c.calibrate)
}

// Signature returns the cached signature for dir, or nil.
func (c *Classifier) Signature(dir string) *Signature {
	sig, _ := c.cache.Lookup(dir)
	return sig
}

// Classify classifies resp against the signature of dir.
func (c *Classifier) Classify(dir string, resp *scanner.Response) (scanner.Outcome, string) {
	return c.ClassifyWith(resp, c.Signature(dir))
}

// ClassifyWith is a pure function of the response, the signature (nil for
// an uncalibrated directory) and the configured filters.
func (c *Classifier) ClassifyWith(resp *scanner.Response, sig *Signature) (scanner.Outcome, string) {
	if !c.status.Allowed(resp.StatusCode) {
		return scanner.NotFound, "status"
	}
	if filtered, name := c.chain.Apply(resp); filtered {
		return scanner.Filtered, name
	}
	if sig != nil && sig.Matches(resp) {
		return scanner.Filtered, "wildcard"
	}
	return scanner.Found, ""
}

// calibrate probes dir with random paths. An inconsistent result is
// retried once; the second outcome is final.
func (c *Classifier) calibrate(ctx context.Context, dir string) *Signature {
	log := c.log.WithField("dir", "/"+dir)
	for attempt := 0; ; attempt++ {
		samples := c.sample(ctx, dir)
		sig, err := BuildSignature(samples, c.cfg.Threshold)
		if err == nil {
			log.WithField("signature", sig.String()).Debug("directory calibrated")
			return sig
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrInconsistent) && attempt == 0 {
			log.Debug("inconsistent calibration, retrying")
			continue
		}
		log.WithError(&AmbiguityError{Dir: dir, Err: err}).Warn("wildcard suppression disabled for directory")
		return nil
	}
}

func (c *Classifier) sample(ctx context.Context, dir string) []*scanner.Response {
	var samples []*scanner.Response
	for _, p := range probePaths(dir, c.cfg.Probes) {
		if c.cfg.Pace != nil {
			if err := c.cfg.Pace(ctx); err != nil {
				return samples
			}
		}
		if c.state != nil {
			c.state.CalibrationRequests.Add(1)
		}
		resp, err := c.sender.Do(ctx, http.MethodGet, p)
		if err != nil {
			if ctx.Err() != nil {
				return samples
			}
			continue
		}
		samples = append(samples, resp)
	}
	return samples
}
