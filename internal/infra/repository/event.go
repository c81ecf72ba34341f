package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/infra/database/models"
	"github.com/soctools/lurelab/internal/utils"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, ev domain.PhishEvent) error {
	meta := ev.Metadata
	if meta == nil {
		meta = utils.Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	row := models.PhishEvent{
		Email:       string(ev.Identity),
		Kind:        string(ev.Kind),
		UserAgent:   ev.UserAgent,
		SourceAddr:  ev.SourceAddr,
		Fingerprint: ev.Fingerprint,
		Metadata:    string(metaJSON),
		CreatedAt:   ev.OccurredAt,
	}

	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.PhishEvent, error) {
	q := r.db.WithContext(ctx).Model(&models.PhishEvent{})
	if filter.Identity != "" {
		q = q.Where("email = ?", string(filter.Identity))
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}

	var rows []models.PhishEvent
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.PhishEvent, 0, len(rows))
	for _, row := range rows {
		meta := utils.Metadata{}
		if row.Metadata != "" {
			if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
				return nil, err
			}
		}
		events = append(events, domain.PhishEvent{
			Identity:    domain.Identity(row.Email),
			Kind:        domain.EventKind(row.Kind),
			UserAgent:   row.UserAgent,
			SourceAddr:  row.SourceAddr,
			Fingerprint: row.Fingerprint,
			Metadata:    meta,
			OccurredAt:  row.CreatedAt,
		})
	}
	return events, nil
}
