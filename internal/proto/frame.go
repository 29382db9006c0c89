package proto

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidFrame = errors.New("invalid request frame")

// FrameAuth: (scheme, encoded token) pair for the Authorization header.
type FrameAuth struct {
	Scheme string
	Token  string // base64
}

// FrameRequest: one tunnel round's request head. ContentLength is a tunnel
// state signal; no body bytes follow during negotiation.
type FrameRequest struct {
	Method        string
	URI           string
	Host          string
	ContentLength uint32
	Auth          *FrameAuth // nil = no Authorization header
}

// WriteRequest serializes the request head to wire bytes.
func WriteRequest(f *FrameRequest) ([]byte, error) {
	if f == nil || f.Method == "" || f.URI == "" {
		return nil, ErrInvalidFrame
	}
	if f.Auth != nil && f.Auth.Scheme == "" {
		return nil, ErrInvalidFrame
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", f.Method, f.URI)
	b.WriteString("Cache-Control: no-cache\r\n")
	b.WriteString("Connection: Keep-Alive\r\n")
	b.WriteString("Pragma: no-cache\r\n")
	b.WriteString("Accept: application/rpc\r\n")
	b.WriteString("User-Agent: MSRPC\r\n")
	if f.Host != "" {
		fmt.Fprintf(&b, "Host: %s\r\n", f.Host)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", f.ContentLength)
	if f.Auth != nil {
		fmt.Fprintf(&b, "Authorization: %s %s\r\n", f.Auth.Scheme, f.Auth.Token)
	}
	b.WriteString("\r\n")
	return b.Bytes(), nil
}

// ResponseAuthToken extracts the encoded token for scheme from a response's
// WWW-Authenticate headers. ok is false when no header matches the scheme;
// a bare scheme with no token yields ("", true).
func ResponseAuthToken(resp *http.Response, scheme string) (token string, ok bool) {
	if resp == nil || scheme == "" {
		return "", false
	}
	for _, v := range resp.Header.Values("WWW-Authenticate") {
		v = strings.TrimSpace(v)
		if len(v) < len(scheme) || !strings.EqualFold(v[:len(scheme)], scheme) {
			continue
		}
		rest := v[len(scheme):]
		if rest == "" {
			return "", true
		}
		if rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}
