// Package reqparse turns a raw HTTP request file (e.g. a Burp Suite export)
// into a scan target.
package reqparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"net/url"
	"os"
	"path"
	"strings"
)

// ParsedRequest holds the data extracted from a raw HTTP request.
type ParsedRequest struct {
	Method  string
	URL     string            // scheme://host plus the directory of the request path
	Headers map[string]string // canonical keys, Host included
	Body    string
}

// ParseFile reads and parses the request stored at path.
func ParseFile(name string) (*ParsedRequest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a raw HTTP/1.x or HTTP/2-style request.
func Parse(r io.Reader) (*ParsedRequest, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	requestLine, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request file is empty")
		}
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	parts := strings.Fields(requestLine)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid request line: %q", requestLine)
	}
	req := &ParsedRequest{Method: strings.ToUpper(parts[0]), Headers: make(map[string]string)}
	proto := ""
	if len(parts) >= 3 {
		proto = strings.ToUpper(parts[2])
	}

	for {
		line, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading request file: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, ":"), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if strings.EqualFold(key, "authority") {
			key = "Host"
		}
		req.Headers[textproto.CanonicalMIMEHeaderKey(key)] = strings.TrimSpace(value)
		if errors.Is(err, io.EOF) {
			break
		}
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	req.Body = strings.TrimRight(string(body), "\r\n")
	delete(req.Headers, "Content-Length")

	target := parts[1]
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid URL in request line: %w", err)
		}
		req.URL = u.Scheme + "://" + u.Host + baseDir(u.Path)
		return req, nil
	}

	host, ok := req.Headers["Host"]
	if !ok || host == "" {
		return nil, errors.New("request file missing Host header")
	}
	// Exports rarely say whether TLS was used; only an explicit :80 on an
	// HTTP/1 request means plain HTTP.
	scheme := "https"
	if strings.HasPrefix(proto, "HTTP/1") && strings.HasSuffix(host, ":80") {
		scheme = "http"
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid request target: %w", err)
	}
	req.URL = scheme + "://" + host + baseDir(u.Path)
	return req, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), err
}

// baseDir returns the directory of the request path without a trailing
// slash, or "" for the root.
func baseDir(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		p = path.Dir(p)
	}
	p = strings.TrimRight(p, "/")
	if p == "." {
		return ""
	}
	return p
}
