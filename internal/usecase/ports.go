package usecase

import (
	"context"

	"github.com/soctools/lurelab/internal/domain"
)

// CredentialRepository persists the single current credential record per
// identity. Upsert must be atomic at the storage boundary.
type CredentialRepository interface {
	Upsert(ctx context.Context, rec domain.CredentialRecord) error
}

// EventRepository is the append-only store of phishing funnel events.
type EventRepository interface {
	Append(ctx context.Context, ev domain.PhishEvent) error
	List(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.PhishEvent, error)
}

// DownloadRepository is the append-only store of lure-artifact downloads.
type DownloadRepository interface {
	Append(ctx context.Context, ev domain.DownloadEvent) error
	List(ctx context.Context, limit int) ([]domain.DownloadEvent, error)
}

// SecretHasher one-way hashes a captured secret before persistence.
type SecretHasher interface {
	Hash(secret string) (string, error)
}
