package service

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soctools/lurelab/internal/config"
	"github.com/soctools/lurelab/internal/domain"
)

func TestPayloadFromConfiguredBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("file body"))
	s := NewArtifactService(config.Lure{ArtifactBase64: encoded})

	got, err := s.Payload()
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	if got != encoded {
		t.Fatalf("got %q, want %q", got, encoded)
	}
}

func TestPayloadFromFileIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewArtifactService(config.Lure{ArtifactPath: path})

	first, err := s.Payload()
	if err != nil {
		t.Fatalf("first payload failed: %v", err)
	}
	if first != base64.StdEncoding.EncodeToString([]byte("pdf bytes")) {
		t.Fatalf("unexpected encoding %q", first)
	}

	// Second read must come from cache even if the file is gone.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := s.Payload()
	if err != nil {
		t.Fatalf("cached payload failed: %v", err)
	}
	if second != first {
		t.Fatalf("cache returned %q, want %q", second, first)
	}
}

func TestPayloadMissingArtifact(t *testing.T) {
	s := NewArtifactService(config.Lure{})

	_, err := s.Payload()
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestNonceIsFresh(t *testing.T) {
	s := NewArtifactService(config.Lure{})

	a, err := s.Nonce()
	if err != nil {
		t.Fatalf("nonce failed: %v", err)
	}
	b, err := s.Nonce()
	if err != nil {
		t.Fatalf("nonce failed: %v", err)
	}
	if a == b {
		t.Fatal("nonces repeat")
	}

	raw, err := base64.StdEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("nonce is not base64: %v", err)
	}
	if len(raw) != 16 {
		t.Fatalf("nonce is %d bytes, want 16", len(raw))
	}
}
