package record

import (
	"net/mail"
	"strings"
	"time"
)

// Status is the lifecycle state of an audit record.
//
// Transitions are monotonic: PENDING may move to COMPLETED or FAILED,
// both of which are terminal. A record never returns to PENDING.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Summary carries the analysis outcome. It is present exactly when the
// record reached COMPLETED and is written atomically with that transition.
type Summary struct {
	SensitiveDataCount int                 `json:"sensitive_data_count"`
	MaskedSample       []map[string]string `json:"masked_sample"`
}

// AuditRecord tracks one uploaded file from submission through analysis.
//
// Invariants:
// - AuditID is unique and immutable.
// - RequesterEmail, FileName, StoragePath and CreatedAt never change after creation.
// - Summary is nil while PENDING or FAILED and non-nil once COMPLETED.
//
// RawText is the uploaded content stored verbatim. It is deliberately kept
// unmasked at rest so a record can be re-analysed against a different
// catalog; it is excluded from JSON responses.
type AuditRecord struct {
	AuditID        string    `json:"audit_id" db:"audit_id"`
	RequesterEmail string    `json:"requester_email" db:"requester_email"`
	FileName       string    `json:"file_name" db:"file_name"`
	StoragePath    string    `json:"storage_path" db:"storage_path"`
	RawText        string    `json:"-" db:"raw_text"`
	Status         Status    `json:"status" db:"status"`
	Summary        *Summary  `json:"summary,omitempty" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeEmail lower-cases and syntactically validates a requester email.
// The returned address is the canonical form stored on records and used as
// the requester index key.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrInvalidArgument
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidArgument
	}
	return s, nil
}
