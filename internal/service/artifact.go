package service

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/soctools/lurelab/internal/config"
	"github.com/soctools/lurelab/internal/domain"
)

const artifactCacheKey = "artifact"

// ArtifactService serves the lure artifact: the base64 payload embedded in
// the auto-download page, the filename the browser saves it under, and the
// per-request CSP nonce guarding the inline script.
type ArtifactService struct {
	conf  config.Lure
	cache *cache.Cache
}

func NewArtifactService(conf config.Lure) *ArtifactService {
	return &ArtifactService{
		conf:  conf,
		cache: cache.New(10*time.Minute, 15*time.Minute),
	}
}

// Payload returns the artifact as base64. A configured file path is read
// and encoded once, then served from cache.
func (s *ArtifactService) Payload() (string, error) {
	if s.conf.ArtifactBase64 != "" {
		return s.conf.ArtifactBase64, nil
	}

	if s.conf.ArtifactPath == "" {
		return "", domain.NotFoundError{Resource: "artifact"}
	}

	if cached, found := s.cache.Get(artifactCacheKey); found {
		return cached.(string), nil
	}

	raw, err := os.ReadFile(s.conf.ArtifactPath)
	if err != nil {
		return "", errors.Wrap(err, "reading artifact")
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	s.cache.Set(artifactCacheKey, encoded, cache.DefaultExpiration)
	return encoded, nil
}

func (s *ArtifactService) Filename() string {
	return s.conf.ArtifactName
}

// Nonce returns a fresh base64 value for the page's script-src CSP.
func (s *ArtifactService) Nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating nonce")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
