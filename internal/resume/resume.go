// Package resume persists scan progress so an interrupted scan can pick up
// where it stopped.
package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State tracks the progress of one target scan.
type State struct {
	URL            string    `json:"url"`
	ScanID         string    `json:"scan_id,omitempty"`
	Updated        time.Time `json:"updated"`
	CompletedPaths []string  `json:"completed_paths"`
	// Directories maps every queued directory ("" = root) to its
	// recursion depth.
	Directories map[string]int `json:"directories,omitempty"`

	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// Key identifies a job for resume bookkeeping.
func Key(method, path string) string {
	if method == "" || method == "GET" {
		return path
	}
	return method + " " + path
}

// New creates a new empty resume state that will be saved to path.
func New(path, url string) *State {
	return &State{
		URL:  url,
		path: path,
		done: make(map[string]struct{}),
	}
}

// Load reads an existing resume state from disk. It returns nil, nil if the
// file does not exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}

	s.path = path
	s.done = make(map[string]struct{}, len(s.CompletedPaths))
	for _, p := range s.CompletedPaths {
		s.done[p] = struct{}{}
	}
	return &s, nil
}

// Matches reports whether the state belongs to url.
func (s *State) Matches(url string) bool { return s != nil && s.URL == url }

// IsCompleted returns true if the job key was already probed.
func (s *State) IsCompleted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.done[key]
	return ok
}

// MarkCompleted records a job key as done.
func (s *State) MarkCompleted(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[key]; !ok {
		s.done[key] = struct{}{}
		s.CompletedPaths = append(s.CompletedPaths, key)
	}
}

// Completed returns the number of recorded jobs.
func (s *State) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}

// SetDirectories records the directories queued so far.
func (s *State) SetDirectories(dirs map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Directories = maps.Clone(dirs)
}

// Save writes the state to disk atomically.
func (s *State) Save() error {
	s.mu.Lock()
	s.Updated = time.Now().UTC()
	data, err := json.Marshal(s)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("serializing resume state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".dirsweep-resume-*")
	if err != nil {
		return fmt.Errorf("writing resume file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing resume file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing resume file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Remove deletes the resume file (called on successful completion).
func (s *State) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
