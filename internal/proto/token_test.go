package proto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestEncodeDecodeToken(t *testing.T) {
	tok := []byte{0x4e, 0x54, 0x4c, 0x4d, 0x53, 0x53, 0x50, 0x00}
	enc := EncodeToken(tok)
	dec, err := DecodeToken(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, tok) {
		t.Fatalf("roundtrip: got %x", dec)
	}
}

func TestDecodeTokenEmpty(t *testing.T) {
	dec, err := DecodeToken("")
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != 0 {
		t.Fatalf("expected empty, got %x", dec)
	}
}

func TestDecodeTokenMalformed(t *testing.T) {
	_, err := DecodeToken("!!not-base64!!")
	if !errors.Is(err, ErrTokenDecode) {
		t.Fatalf("expected ErrTokenDecode, got %v", err)
	}
}

func TestDecodeTokenTooLarge(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(make([]byte, MaxTokenSize+1))
	_, err := DecodeToken(enc)
	if !errors.Is(err, ErrTokenTooLarge) {
		t.Fatalf("expected ErrTokenTooLarge, got %v", err)
	}
}
