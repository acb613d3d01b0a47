// Package policy declares how much of each sensitive data type every viewer
// tier may see.
//
// A Table is total over the closed DataType and ViewerTier sets and is
// validated once when it is built: a table that is incomplete, malformed, or
// discloses less to a higher tier than to a lower one is rejected, and the
// process holding it must refuse to start. After construction a Table is
// read-only and safe for concurrent use.
package policy

import (
	"tiermask/pkg/domain"
)

// Table maps (DataType, ViewerTier) to a RevealSpec.
type Table struct {
	version string
	entries map[domain.DataType]map[domain.ViewerTier]RevealSpec
}

// Entries is the builder input for New: data type → tier → spec.
type Entries map[domain.DataType]map[domain.ViewerTier]RevealSpec

// New validates entries and returns an immutable table. Spec IDs are assigned
// as "<datatype>/<tier>" and every spec of a data type gets the same
// ShortValueLength.
//
// Errors: returns a *ValidationError (matching ErrInvalidPolicy) on the first
// violation found.
func New(version string, entries Entries) (*Table, error) {
	copied := make(map[domain.DataType]map[domain.ViewerTier]RevealSpec, len(entries))
	for dt, row := range entries {
		r := make(map[domain.ViewerTier]RevealSpec, len(row))
		for tier, spec := range row {
			spec = spec.clone()
			spec.ID = ruleID(dt, tier)
			r[tier] = spec
		}
		setShortValueLength(r, shortValueLength(r))
		copied[dt] = r
	}

	if version == "" {
		return nil, newValidationError("", "", "version", errRequired)
	}
	if err := validateEntries(copied); err != nil {
		return nil, err
	}
	return &Table{version: version, entries: copied}, nil
}

// Lookup returns the spec for a pair. It reports false only when dt or tier is
// outside the closed sets; a validated table has every known pair.
func (t *Table) Lookup(dt domain.DataType, tier domain.ViewerTier) (RevealSpec, bool) {
	row, ok := t.entries[dt]
	if !ok {
		return RevealSpec{}, false
	}
	spec, ok := row[tier]
	if !ok {
		return RevealSpec{}, false
	}
	return spec.clone(), true
}

// MostRestrictive returns the basic-tier spec for dt. The service uses it to
// pick a mask token when a caller passes an unknown tier.
func (t *Table) MostRestrictive(dt domain.DataType) (RevealSpec, bool) {
	return t.Lookup(dt, domain.LowestTier())
}

// Version identifies the policy revision. It is recorded in audit entries.
func (t *Table) Version() string {
	return t.version
}
