package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// request is the subset of an HTTP request head the callback handler looks at.
type request struct {
	Method  string
	Path    string
	FullURL string
}

// isCallback reports whether r is the bridge page's URL delivery request.
func (r request) isCallback() bool {
	return (r.Method == http.MethodGet || r.Method == http.MethodPost) && r.Path == CallbackPath
}

// readHead reads from r until the blank line that ends the request head, EOF, or [MaxRequestSize] bytes.
//
// complete is false when the head was cut off by the size limit or by EOF; its last header line may be truncated.
// Bytes after the head (a request body) may be included; they are ignored by [parseRequest].
func readHead(r io.Reader) (raw []byte, complete bool, err error) {
	buf := make([]byte, MaxRequestSize)
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if headComplete(buf[:n]) {
			return buf[:n], true, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) && n > 0 {
				break
			}
			return nil, false, err
		}
	}
	return buf[:n], false, nil
}

func headComplete(b []byte) bool {
	return bytes.Contains(b, []byte("\r\n\r\n")) || bytes.Contains(b, []byte("\n\n"))
}

// parseRequest extracts the method, path and [FullURLHeader] value from a raw request head.
//
// Invalid UTF-8 is replaced rather than rejected. The header name is matched case-insensitively and the first
// occurrence wins; its value is trimmed and an empty value counts as absent. The second return value is false when
// the request line cannot be parsed.
func parseRequest(raw []byte) (request, bool) {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, "\r\n\r\n"); i >= 0 {
		text = text[:i]
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	method, path, ok := parseRequestLine(lines[0])
	if !ok {
		return request{}, false
	}

	req := request{Method: method, Path: path}
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(name, FullURLHeader) {
			continue
		}
		req.FullURL = strings.TrimSpace(value)
		break
	}

	return req, true
}

// parseRequestLine splits "METHOD target [HTTP/x.y]" and reduces the target to its path.
func parseRequestLine(line string) (method, path string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return "", "", false
	}
	if len(fields) == 3 && !strings.HasPrefix(fields[2], "HTTP/") {
		return "", "", false
	}

	method = fields[0]
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return "", "", false
		}
	}

	target := fields[1]
	switch {
	case strings.HasPrefix(target, "/"):
		path, _, _ = strings.Cut(target, "?")
	case target == "*":
		path = target
	default:
		u, err := url.Parse(target)
		if err != nil || u.Scheme == "" {
			return "", "", false
		}
		path = u.Path
		if path == "" {
			path = "/"
		}
	}

	return method, path, true
}
