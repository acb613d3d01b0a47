package domain

import dErrors "tiermask/pkg/domain-errors"

// ViewerTier is a requester's trust level. Tiers are totally ordered and the
// order decides how much of a sensitive value is disclosed.
type ViewerTier string

const (
	TierBasic    ViewerTier = "basic"
	TierStandard ViewerTier = "standard"
	TierGold     ViewerTier = "gold"
	TierAdmin    ViewerTier = "admin"
)

// tierOrder defines the total order. Higher numbers are more trusted.
var tierOrder = map[ViewerTier]int{
	TierBasic:    1,
	TierStandard: 2,
	TierGold:     3,
	TierAdmin:    4,
}

// ParseViewerTier validates and returns a ViewerTier.
//
// Errors: returns CodeInvalidInput when the value is empty or unknown.
func ParseViewerTier(s string) (ViewerTier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "viewer tier cannot be empty")
	}
	t := ViewerTier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown viewer tier: "+s)
	}
	return t, nil
}

// IsValid reports whether the tier is one of the known tiers.
func (t ViewerTier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// Rank returns the tier's position in the total order, or 0 for unknown tiers.
func (t ViewerTier) Rank() int {
	return tierOrder[t]
}

// IsAtLeast returns true if t is at least as trusted as other. Unknown tiers
// rank below every known tier, so an unknown t is never at least a known one.
func (t ViewerTier) IsAtLeast(other ViewerTier) bool {
	return t.Rank() >= other.Rank() && t.IsValid()
}

func (t ViewerTier) String() string {
	return string(t)
}

// AllViewerTiers returns every tier in ascending trust order.
func AllViewerTiers() []ViewerTier {
	return []ViewerTier{TierBasic, TierStandard, TierGold, TierAdmin}
}

// LowestTier is the most restrictive tier.
func LowestTier() ViewerTier {
	return TierBasic
}
