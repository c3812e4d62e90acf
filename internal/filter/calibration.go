package filter

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CalibrationCache holds one signature per directory for the lifetime of a
// scan. The first caller for a directory calibrates it; concurrent callers
// wait on the same flight and share the result. A nil signature marks an
// uncalibrated directory.
type CalibrationCache struct {
	mu    sync.RWMutex
	sigs  map[string]*Signature
	group singleflight.Group
}

// NewCalibrationCache returns an empty cache.
func NewCalibrationCache() *CalibrationCache {
	return &CalibrationCache{sigs: make(map[string]*Signature)}
}

// Lookup returns the cached signature for dir and whether dir has been
// calibrated at all.
func (c *CalibrationCache) Lookup(dir string) (*Signature, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig, ok := c.sigs[dir]
	return sig, ok
}

// Ensure returns the signature for dir, running calibrate at most once per
// directory. Results of a calibration interrupted by ctx are not cached.
func (c *CalibrationCache) Ensure(ctx context.Context, dir string, calibrate func(context.Context, string) *Signature) *Signature {
	if sig, ok := c.Lookup(dir); ok {
		return sig
	}
	v, _, _ := c.group.Do(dir, func() (any, error) {
		if sig, ok := c.Lookup(dir); ok {
			return sig, nil
		}
		sig := calibrate(ctx, dir)
		if ctx.Err() != nil {
			return sig, nil
		}
		c.mu.Lock()
		c.sigs[dir] = sig
		c.mu.Unlock()
		return sig, nil
	})
	sig, _ := v.(*Signature)
	return sig
}

// Len returns the number of calibrated directories.
func (c *CalibrationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sigs)
}
