package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/infra/database/models"
)

// downloadCacheTTL bounds how stale the download listing may be when a
// memcached instance is configured.
const downloadCacheTTL = 5 // seconds

type DownloadRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewDownloadRepository returns a repository over db. mc may be nil; when
// set, List results are cached for a few seconds.
func NewDownloadRepository(db *gorm.DB, mc *memcache.Client) *DownloadRepository {
	return &DownloadRepository{db: db, mc: mc}
}

func (r *DownloadRepository) Append(ctx context.Context, ev domain.DownloadEvent) error {
	row := models.Download{
		Email:        string(ev.Identity),
		UserAgent:    ev.UserAgent,
		SourceAddr:   ev.SourceAddr,
		Fingerprint:  ev.Fingerprint,
		DownloadedAt: ev.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *DownloadRepository) List(ctx context.Context, limit int) ([]domain.DownloadEvent, error) {
	cacheKey := fmt.Sprintf("lurelab:downloads:%d", limit)

	if r.mc != nil {
		if item, err := r.mc.Get(cacheKey); err == nil {
			var cached []domain.DownloadEvent
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []models.Download
	err := r.db.WithContext(ctx).
		Order("downloaded_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	downloads := make([]domain.DownloadEvent, 0, len(rows))
	for _, row := range rows {
		downloads = append(downloads, domain.DownloadEvent{
			Identity:    domain.Identity(row.Email),
			UserAgent:   row.UserAgent,
			SourceAddr:  row.SourceAddr,
			Fingerprint: row.Fingerprint,
			OccurredAt:  row.DownloadedAt,
		})
	}

	if r.mc != nil {
		if payload, err := json.Marshal(downloads); err == nil {
			// best effort; a cold cache just falls through to postgres
			_ = r.mc.Set(&memcache.Item{
				Key:        cacheKey,
				Value:      payload,
				Expiration: downloadCacheTTL,
			})
		}
	}

	return downloads, nil
}
