package service

import (
	"golang.org/x/crypto/bcrypt"
)

// hashCost is fixed at a level appropriate for interactive latency.
// bcrypt generates a fresh salt per hash, so equal secrets never produce
// equal stored hashes.
const hashCost = 10

// SecretHasher one-way hashes captured secrets before they are persisted.
type SecretHasher struct {
	cost int
}

func NewSecretHasher() *SecretHasher {
	return &SecretHasher{cost: hashCost}
}

func (h *SecretHasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
