package filter

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

var (
	// ErrTooFewProbes means fewer than two calibration probes succeeded.
	ErrTooFewProbes = errors.New("too few calibration probes succeeded")
	// ErrInconsistent means the probes succeeded but disagreed, so no
	// baseline could be formed.
	ErrInconsistent = errors.New("calibration probes were inconsistent")
)

// AmbiguityError reports a directory that could not be calibrated. The
// directory is scanned without wildcard suppression.
type AmbiguityError struct {
	Dir string
	Err error
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("calibrating /%s: %v", e.Dir, e.Err)
}

func (e *AmbiguityError) Unwrap() error { return e.Err }

type matchMode int

const (
	matchHashExact   matchMode = iota // all calibration bodies were byte-identical
	matchFuzzyLength                  // bodies varied but lengths converged
)

type baseline struct {
	statusCode    int
	contentLength int64
	hash          uint64
	wordCount     int
	lineCount     int
	mode          matchMode
}

// Signature describes what a non-existent path looks like in one
// directory. It is immutable once built.
type Signature struct {
	baselines []baseline
	threshold int // byte tolerance for fuzzy length matching
}

// BuildSignature groups calibration responses by status and derives one
// baseline per group of at least two: exact when all bodies hash alike,
// fuzzy when lengths converge within threshold bytes of the median.
func BuildSignature(samples []*scanner.Response, threshold int) (*Signature, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: %d", ErrTooFewProbes, len(samples))
	}

	groups := make(map[int][]*scanner.Response)
	var codes []int
	for _, r := range samples {
		if _, ok := groups[r.StatusCode]; !ok {
			codes = append(codes, r.StatusCode)
		}
		groups[r.StatusCode] = append(groups[r.StatusCode], r)
	}

	sig := &Signature{threshold: threshold}
	for _, code := range codes {
		group := groups[code]
		if len(group) < 2 {
			continue
		}

		allSameHash := true
		for _, g := range group[1:] {
			if g.Hash != group[0].Hash {
				allSameHash = false
				break
			}
		}
		if allSameHash {
			sig.baselines = append(sig.baselines, baseline{
				statusCode:    code,
				contentLength: group[0].ContentLength,
				hash:          group[0].Hash,
				wordCount:     group[0].WordCount,
				lineCount:     group[0].LineCount,
				mode:          matchHashExact,
			})
			continue
		}

		lengths := make([]int64, len(group))
		words := make([]int, len(group))
		lines := make([]int, len(group))
		for i, g := range group {
			lengths[i] = g.ContentLength
			words[i] = g.WordCount
			lines[i] = g.LineCount
		}
		medianLen := median(lengths)

		converges := true
		for _, l := range lengths {
			if abs(l-medianLen) > int64(threshold) {
				converges = false
				break
			}
		}
		if converges {
			sig.baselines = append(sig.baselines, baseline{
				statusCode:    code,
				contentLength: medianLen,
				wordCount:     median(words),
				lineCount:     median(lines),
				mode:          matchFuzzyLength,
			})
		}
	}

	if len(sig.baselines) == 0 {
		return nil, ErrInconsistent
	}
	return sig, nil
}

// Matches reports whether resp looks like the directory's non-existent
// path response. An empty 200 is always treated as a catch-all.
func (s *Signature) Matches(resp *scanner.Response) bool {
	if resp.StatusCode == 200 && resp.ContentLength == 0 {
		return true
	}

	for _, b := range s.baselines {
		if resp.StatusCode != b.statusCode {
			continue
		}

		switch b.mode {
		case matchHashExact:
			return resp.Hash == b.hash

		case matchFuzzyLength:
			// 2 of 3: pages that echo the requested path change size
			// slightly but keep word and line counts stable.
			lengthOK := abs(resp.ContentLength-b.contentLength) <= int64(s.threshold)
			wordOK := abs(resp.WordCount-b.wordCount) <= max(5, b.wordCount/20)
			lineOK := abs(resp.LineCount-b.lineCount) <= max(2, b.lineCount/10)

			matches := 0
			for _, ok := range []bool{lengthOK, wordOK, lineOK} {
				if ok {
					matches++
				}
			}
			return matches >= 2
		}
		return false
	}
	return false
}

func (s *Signature) String() string {
	parts := make([]string, len(s.baselines))
	for i, b := range s.baselines {
		mode := "exact"
		if b.mode == matchFuzzyLength {
			mode = "fuzzy"
		}
		parts[i] = fmt.Sprintf("%d/%s/%dB", b.statusCode, mode, b.contentLength)
	}
	return strings.Join(parts, ",")
}

// probePaths creates n random paths under dir that are extremely unlikely
// to exist on any real server.
func probePaths(dir string, n int) []string {
	probes := make([]string, n)
	for i := range probes {
		buf := make([]byte, 8)
		_, _ = rand.Read(buf)
		probes[i] = dir + "dirsweep_" + hex.EncodeToString(buf)
	}
	return probes
}

func median[T int | int64](vals []T) T {
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

func abs[T int | int64](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
