// Package audit defines the masking audit trail: the immutable Record, the
// Store that persists batches of records, and the Sink the masking path
// writes to.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reason explains why a record was written.
type Reason string

const (
	// ReasonFullReveal marks a value returned unmasked to an admin viewer.
	ReasonFullReveal Reason = "full_reveal"
	// ReasonUnknownTier marks a lookup with a tier outside the known set.
	ReasonUnknownTier Reason = "unknown_tier"
	// ReasonUnknownDataType marks a lookup with a data type outside the known set.
	ReasonUnknownDataType Reason = "unknown_data_type"
	// ReasonOverrideMismatch marks an override whose data type disagrees with
	// the field map.
	ReasonOverrideMismatch Reason = "override_mismatch"
)

// Record is one audit entry. Records are created as a side effect of a mask
// call and are never mutated afterwards; stores only append them.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ViewerID      string    `json:"viewer_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Tier          string    `json:"tier"`
	DataType      string    `json:"data_type"`
	Field         string    `json:"field,omitempty"`
	RuleID        string    `json:"rule_id,omitempty"`
	PolicyVersion string    `json:"policy_version,omitempty"`
	FullReveal    bool      `json:"full_reveal"`
	Fallback      bool      `json:"fallback"`
	Reason        Reason    `json:"reason"`
}

// Store persists records. Append is all-or-nothing per batch where the
// backend allows it.
type Store interface {
	Append(ctx context.Context, records []Record) error
}

// Sink accepts records from the masking path. Implementations must not block
// and must not fail the caller; delivery problems are counted and logged
// inside the sink.
type Sink interface {
	Record(ctx context.Context, record Record)
}

// Nop discards every record. It is the sink used when auditing is disabled.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Record) {}
