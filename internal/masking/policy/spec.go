package policy

import (
	"slices"

	"tiermask/pkg/domain"
)

// DomainReveal controls how much of an email domain is disclosed.
type DomainReveal string

const (
	DomainNone DomainReveal = "none" // ***.***
	DomainTLD  DomainReveal = "tld"  // ***.com
	DomainFull DomainReveal = "full" // example.com
)

// domainOrder ranks domain disclosure for monotonicity checks.
var domainOrder = map[DomainReveal]int{
	DomainNone: 0,
	DomainTLD:  1,
	DomainFull: 2,
}

// IsValid reports whether the domain reveal level is known.
func (d DomainReveal) IsValid() bool {
	_, ok := domainOrder[d]
	return ok
}

// RevealSpec holds the disclosure parameters for one (DataType, ViewerTier)
// pair. Specs are values; a Table hands out copies.
type RevealSpec struct {
	// ID identifies the rule in results and audit records. Set by the table.
	ID string

	// Prefix and Suffix are the characters kept at each end. For ip they count
	// address segments; for name, Prefix is the letters kept per masked token.
	Prefix int
	Suffix int

	// Fill replaces the hidden middle of a partially revealed value.
	Fill string

	// MaskToken replaces the whole value when nothing may be shown, including
	// values too short to partially reveal and malformed input.
	MaskToken string

	// Domain applies to email only.
	Domain DomainReveal

	// RevealTokens applies to name only: leading tokens shown in full.
	RevealTokens int

	// Boundaries applies to amount only: ascending, lower-inclusive bucket edges.
	Boundaries []float64

	// Exact means the raw value is returned unmodified (full reveal).
	Exact bool

	// ShortValueLength is the length (runes, or segments for ip) at or below
	// which a value is replaced by MaskToken. Set by the table to the largest
	// Prefix+Suffix of any tier of the same data type, so a value one tier
	// must hide whole is hidden whole at every tier.
	ShortValueLength int
}

// RuleID returns the rule identifier reported alongside masked output.
func (s RevealSpec) RuleID() string {
	return s.ID
}

// DisclosesAtLeast reports whether s reveals at least as much as other.
// Each disclosure component must be greater or equal; for amount buckets the
// boundaries of s must refine those of other, so the bucket that contains any
// value can only get narrower.
func (s RevealSpec) DisclosesAtLeast(other RevealSpec) bool {
	if s.Exact {
		return true
	}
	if other.Exact {
		return false
	}
	if s.Prefix < other.Prefix || s.Suffix < other.Suffix {
		return false
	}
	if s.RevealTokens < other.RevealTokens {
		return false
	}
	if domainOrder[s.Domain] < domainOrder[other.Domain] {
		return false
	}
	for _, b := range other.Boundaries {
		if _, found := slices.BinarySearch(s.Boundaries, b); !found {
			return false
		}
	}
	return true
}

// revealedChars is the worst-case count of raw characters a spec shows,
// used for the small-reveal rule and for logging.
func (s RevealSpec) revealedChars() int {
	return s.Prefix + s.Suffix
}

// shortValueLength returns the largest number of raw characters any
// non-exact spec in row keeps.
func shortValueLength(row map[domain.ViewerTier]RevealSpec) int {
	n := 0
	for _, spec := range row {
		if !spec.Exact {
			n = max(n, spec.revealedChars())
		}
	}
	return n
}

func setShortValueLength(row map[domain.ViewerTier]RevealSpec, n int) {
	for tier, spec := range row {
		spec.ShortValueLength = n
		row[tier] = spec
	}
}

// clone returns a deep copy so callers cannot mutate table-owned slices.
func (s RevealSpec) clone() RevealSpec {
	if s.Boundaries != nil {
		s.Boundaries = append([]float64(nil), s.Boundaries...)
	}
	return s
}

func ruleID(dt domain.DataType, tier domain.ViewerTier) string {
	return dt.String() + "/" + tier.String()
}
