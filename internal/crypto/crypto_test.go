package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, keyLength)
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	doc := []byte("%PDF-1.7 passport scan")
	sealed, err := s.Seal(doc)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, doc) {
		t.Fatal("sealed output contains the plaintext")
	}
	again, _ := s.Seal(doc)
	if bytes.Equal(sealed, again) {
		t.Error("two seals of the same document are identical")
	}
	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("Open = %q, want %q", got, doc)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	s, _ := NewSealer(testKey())
	sealed, _ := s.Seal([]byte("id card"))
	sealed[len(sealed)-1] ^= 0xff
	if _, err := s.Open(sealed); err == nil {
		t.Error("tampered blob opened")
	}
	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("short err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestNewSealerKeys(t *testing.T) {
	if _, err := NewSealer([]byte("too short")); err == nil {
		t.Error("short key accepted")
	}
	if _, err := NewSealerFromBase64("not base64!"); err == nil {
		t.Error("bad base64 accepted")
	}
	if _, err := NewSealerFromBase64(base64.StdEncoding.EncodeToString(testKey())); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
}
