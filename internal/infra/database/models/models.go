package models

import (
	"time"
)

// Credential holds the most recent capture for one email. The unique index
// on Email is what makes the upsert a single atomic statement.
type Credential struct {
	ID         uint      `gorm:"primaryKey"`
	Email      string    `gorm:"type:text;index:credential_email,unique;not null"`
	SecretHash string    `gorm:"type:text;not null"`
	UserAgent  string    `gorm:"type:text"`
	SourceAddr string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"type:timestamp with time zone;not null"`
	UpdatedAt  time.Time `gorm:"type:timestamp with time zone;not null"`
}

// PhishEvent rows are append-only; nothing updates or deletes them.
type PhishEvent struct {
	ID          uint      `gorm:"primaryKey"`
	Email       string    `gorm:"type:text;index;not null"`
	Kind        string    `gorm:"type:text;index;not null"`
	UserAgent   string    `gorm:"type:text"`
	SourceAddr  string    `gorm:"type:text"`
	Fingerprint string    `gorm:"type:text"`
	Metadata    string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt   time.Time `gorm:"type:timestamp with time zone;not null;index"`
}

// Download rows are append-only; a separate stream from PhishEvent.
type Download struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"type:text;index;not null"`
	UserAgent    string    `gorm:"type:text"`
	SourceAddr   string    `gorm:"type:text"`
	Fingerprint  string    `gorm:"type:text"`
	DownloadedAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
}
