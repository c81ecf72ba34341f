package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/soctools/lurelab/internal/domain"
)

var tracer = otel.Tracer("usecase")

type CredentialUsecase struct {
	repo   CredentialRepository
	hasher SecretHasher
}

func NewCredentialUsecase(repo CredentialRepository, hasher SecretHasher) *CredentialUsecase {
	return &CredentialUsecase{repo: repo, hasher: hasher}
}

// Capture hashes the submitted secret and upserts the credential record for
// the normalized identity. The plaintext secret never leaves this function.
//
// The transport boundary reports a generic rejection to the submitter no
// matter what happens here; Capture only distinguishes validation failures
// (no write) from persistence failures.
func (uc *CredentialUsecase) Capture(ctx context.Context, rawIdentity, secret string, cctx domain.ClientContext) error {
	ctx, span := tracer.Start(ctx, "Credential.Usecase.Capture")
	defer span.End()

	identity, err := domain.NormalizeIdentity(rawIdentity)
	if err != nil {
		return err
	}

	if secret == "" {
		return domain.ErrEmptySecret
	}

	hash, err := uc.hasher.Hash(secret)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "hashing secret")
	}

	now := time.Now().UTC()
	rec := domain.CredentialRecord{
		Identity:   identity,
		SecretHash: hash,
		UserAgent:  cctx.UserAgent,
		SourceAddr: cctx.SourceAddr,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.repo.Upsert(ctx, rec); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "persisting credential")
	}

	return nil
}
