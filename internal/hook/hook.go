// Package hook runs a user command for every reported result.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Timeout bounds a single hook invocation.
const Timeout = 30 * time.Second

// resultJSON is the payload sent to the hook command via stdin.
type resultJSON struct {
	Method        string `json:"method"`
	URL           string `json:"url"`
	Path          string `json:"path"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	RedirectURL   string `json:"redirect,omitempty"`
	WordCount     int    `json:"words"`
	LineCount     int    `json:"lines"`
	Depth         int    `json:"depth"`
	Outcome       string `json:"outcome"`
}

// Runner executes a shell command per result.
type Runner struct {
	cmd string
	log logrus.FieldLogger
}

// NewRunner creates a hook runner for the shell command cmd.
func NewRunner(cmd string, log logrus.FieldLogger) *Runner {
	return &Runner{cmd: cmd, log: log}
}

// Run executes the hook with the result as JSON on stdin and placeholders
// such as {url} and {status} expanded in the command line. Failures are
// logged; they never halt the scan. It returns the command's stdout.
func (r *Runner) Run(ctx context.Context, result *scanner.ProbeResult) []byte {
	method := result.Job.Method
	if method == "" {
		method = "GET"
	}
	payload := resultJSON{
		Method:        method,
		URL:           result.URL,
		Path:          result.Path(),
		StatusCode:    result.StatusCode,
		ContentLength: result.ContentLength,
		RedirectURL:   result.RedirectURL,
		WordCount:     result.WordCount,
		LineCount:     result.LineCount,
		Depth:         result.Job.Depth,
		Outcome:       result.Outcome.String(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.WithError(err).Warn("hook: marshal failed")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	expanded := strings.NewReplacer(
		"{url}", result.URL,
		"{path}", payload.Path,
		"{status}", strconv.Itoa(result.StatusCode),
		"{size}", strconv.FormatInt(result.ContentLength, 10),
		"{method}", method,
		"{depth}", strconv.Itoa(result.Job.Depth),
	).Replace(r.cmd)

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, expanded)...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	log := r.log.WithField("url", result.URL)
	if err != nil {
		log.WithError(err).WithField("stderr", strings.TrimSpace(stderr.String())).Warn("hook failed")
		return nil
	}
	if len(out) > 0 {
		log.Info("hook: " + strings.TrimSpace(string(out)))
	}
	return out
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
