package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/infra/database/models"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert writes the record as a single INSERT ... ON CONFLICT statement.
// Concurrent submissions for the same identity race safely at the storage
// boundary; there is no read-then-write in application logic. created_at is
// only set on first insert.
func (r *CredentialRepository) Upsert(ctx context.Context, rec domain.CredentialRecord) error {
	row := models.Credential{
		Email:      string(rec.Identity),
		SecretHash: rec.SecretHash,
		UserAgent:  rec.UserAgent,
		SourceAddr: rec.SourceAddr,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{
			"secret_hash": row.SecretHash,
			"user_agent":  row.UserAgent,
			"source_addr": row.SourceAddr,
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(&row).Error
}
