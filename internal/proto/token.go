package proto

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrTokenDecode = errors.New("malformed auth token")
var ErrTokenTooLarge = errors.New("auth token too large")

// EncodeToken renders an opaque token as base64 for a header value.
func EncodeToken(token []byte) string {
	return base64.StdEncoding.EncodeToString(token)
}

// DecodeToken parses a base64 header value; enforces MaxTokenSize.
func DecodeToken(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if len(b) > MaxTokenSize {
		return nil, ErrTokenTooLarge
	}
	return b, nil
}
