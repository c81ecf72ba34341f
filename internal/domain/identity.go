package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Identity is a normalized email address. It is the correlation key shared
// by the credential store and both event ledgers; once constructed it is
// always trimmed and lowercase.
type Identity string

var identityShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeIdentity canonicalizes a raw identifier into an Identity.
// The input is trimmed, percent-decoded and lowercased before the shape
// check. A broken percent-encoding is not fatal: the trimmed raw value is
// used as-is instead.
func NormalizeIdentity(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)

	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		decoded = trimmed
	}

	normalized := strings.ToLower(strings.TrimSpace(decoded))
	if normalized == "" || !identityShape.MatchString(normalized) {
		return "", ErrInvalidIdentity
	}

	return Identity(normalized), nil
}
