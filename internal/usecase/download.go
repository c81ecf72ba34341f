package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/soctools/lurelab/internal/domain"
)

// downloadListMax is both the cap and the default for download listings.
const downloadListMax = 200

type DownloadUsecase struct {
	repo DownloadRepository
}

func NewDownloadUsecase(repo DownloadRepository) *DownloadUsecase {
	return &DownloadUsecase{repo: repo}
}

// Record appends one download observation for the normalized identity.
func (uc *DownloadUsecase) Record(ctx context.Context, rawIdentity string, cctx domain.ClientContext) (domain.DownloadEvent, error) {
	ctx, span := tracer.Start(ctx, "Download.Usecase.Record")
	defer span.End()

	identity, err := domain.NormalizeIdentity(rawIdentity)
	if err != nil {
		return domain.DownloadEvent{}, err
	}

	ev := domain.DownloadEvent{
		Identity:    identity,
		UserAgent:   cctx.UserAgent,
		SourceAddr:  cctx.SourceAddr,
		Fingerprint: cctx.Fingerprint(),
		OccurredAt:  time.Now().UTC(),
	}

	if err := uc.repo.Append(ctx, ev); err != nil {
		span.RecordError(err)
		return domain.DownloadEvent{}, errors.Wrap(err, "appending download")
	}

	return ev, nil
}

// List returns at most 200 downloads, most recent first.
func (uc *DownloadUsecase) List(ctx context.Context, limit int) ([]domain.DownloadEvent, error) {
	ctx, span := tracer.Start(ctx, "Download.Usecase.List")
	defer span.End()

	if limit <= 0 || limit > downloadListMax {
		limit = downloadListMax
	}

	downloads, err := uc.repo.List(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing downloads")
	}
	return downloads, nil
}
