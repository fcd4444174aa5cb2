package credentials

import (
	"bytes"
	"testing"
)

func TestNewSealerRequiresValidKey(t *testing.T) {
	if _, err := newSealer([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestSealerRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	sl, err := newSealer(key)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	plaintext := []byte(`{"api_token":"pat_x","workspace_id":"w"}`)
	sealed, err := sl.seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("pat_x")) {
		t.Fatal("expected encrypted output")
	}

	opened, err := sl.open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestSealerRejectsCorruptedPayload(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	sl, err := newSealer(key)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := sl.seal([]byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := sl.open(sealed); err == nil {
		t.Fatal("expected error for corrupted ciphertext")
	}
}

func TestSealerRejectsTruncatedPayload(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	sl, err := newSealer(key)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	if _, err := sl.open([]byte{0x01}); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
