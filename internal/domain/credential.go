package domain

import "time"

// CredentialRecord is the most recent credential capture for one identity.
// At most one record exists per identity; a resubmission overwrites the
// secret hash and client context in place and refreshes UpdatedAt.
//
// SecretHash holds a salted one-way hash. The plaintext secret must never
// be persisted or logged.
type CredentialRecord struct {
	Identity   Identity  `json:"email"`
	SecretHash string    `json:"-"`
	UserAgent  string    `json:"userAgent"`
	SourceAddr string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
