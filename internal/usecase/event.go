package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/utils"
)

const (
	eventListDefault = 50
	eventListMax     = 100
)

type EventUsecase struct {
	repo EventRepository
}

func NewEventUsecase(repo EventRepository) *EventUsecase {
	return &EventUsecase{repo: repo}
}

// Record appends one funnel event. kind must belong to the closed set; the
// identity is normalized before the write. The created record is returned
// for the operator feed but must not be exposed to the submitting client.
func (uc *EventUsecase) Record(ctx context.Context, rawIdentity string, kind domain.EventKind, cctx domain.ClientContext, meta utils.Metadata) (domain.PhishEvent, error) {
	ctx, span := tracer.Start(ctx, "Event.Usecase.Record")
	defer span.End()

	identity, err := domain.NormalizeIdentity(rawIdentity)
	if err != nil {
		return domain.PhishEvent{}, err
	}

	if !domain.ValidEventKind(kind) {
		return domain.PhishEvent{}, domain.ErrInvalidEventKind
	}

	if meta == nil {
		meta = utils.Metadata{}
	}

	ev := domain.PhishEvent{
		Identity:    identity,
		Kind:        kind,
		UserAgent:   cctx.UserAgent,
		SourceAddr:  cctx.SourceAddr,
		Fingerprint: cctx.Fingerprint(),
		Metadata:    meta,
		OccurredAt:  time.Now().UTC(),
	}

	if err := uc.repo.Append(ctx, ev); err != nil {
		span.RecordError(err)
		return domain.PhishEvent{}, errors.Wrap(err, "appending event")
	}

	return ev, nil
}

// List returns at most min(limit, 100) events, most recent first. A
// non-positive limit means the default of 50. Filter values outside the
// known event kinds are ignored rather than rejected.
func (uc *EventUsecase) List(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.PhishEvent, error) {
	ctx, span := tracer.Start(ctx, "Event.Usecase.List")
	defer span.End()

	if !domain.ValidEventKind(filter.Kind) {
		filter.Kind = ""
	}
	filter.Identity = domain.Identity(strings.ToLower(strings.TrimSpace(string(filter.Identity))))

	if limit <= 0 {
		limit = eventListDefault
	}
	if limit > eventListMax {
		limit = eventListMax
	}

	events, err := uc.repo.List(ctx, filter, limit)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing events")
	}
	return events, nil
}
