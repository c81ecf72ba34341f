package domain

import (
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/soctools/lurelab/internal/utils"
)

// EventKind is one step of the phishing funnel.
type EventKind string

const (
	EventKindView   EventKind = "view"
	EventKindClick  EventKind = "click"
	EventKindSubmit EventKind = "submit"
)

// ValidEventKind reports whether k belongs to the closed funnel set.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventKindView, EventKindClick, EventKindSubmit:
		return true
	}
	return false
}

// ClientContext is the observational metadata attached to a record at write
// time.
type ClientContext struct {
	UserAgent  string
	SourceAddr string
}

// Fingerprint returns a short stable hash of the client context so operators
// can correlate records from one device without the raw user agent leaving
// the store.
func (cc ClientContext) Fingerprint() string {
	return strconv.FormatUint(xxh3.HashString(cc.UserAgent+"|"+cc.SourceAddr), 16)
}

// PhishEvent is one immutable observation of target behavior. Multiple
// events per identity are expected; together they form the funnel.
type PhishEvent struct {
	Identity    Identity       `json:"email"`
	Kind        EventKind      `json:"event"`
	UserAgent   string         `json:"userAgent"`
	SourceAddr  string         `json:"ip"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Metadata    utils.Metadata `json:"metadata"`
	OccurredAt  time.Time      `json:"createdAt"`
}

// DownloadEvent is one immutable observation of a lure-artifact download.
// It is a separate stream from PhishEvent and never merged with it.
type DownloadEvent struct {
	Identity    Identity  `json:"email"`
	UserAgent   string    `json:"userAgent"`
	SourceAddr  string    `json:"ip"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	OccurredAt  time.Time `json:"downloadedAt"`
}

// EventFilter narrows an event listing. Zero-valued fields are not applied.
type EventFilter struct {
	Identity Identity
	Kind     EventKind
}

// FeedItem is the minimal view of an accepted record broadcast to the
// operator feed. It intentionally omits metadata and raw client context.
type FeedItem struct {
	Stream      string    `json:"stream"`
	Identity    Identity  `json:"email"`
	Kind        EventKind `json:"event,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

const (
	FeedStreamEvent    = "event"
	FeedStreamDownload = "download"
)
