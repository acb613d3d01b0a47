package policy

import (
	"fmt"
	"math"

	"tiermask/pkg/domain"
)

// maxPartialReveal caps the characters kept at either end for every tier
// below admin, so a partial reveal never narrows the search space much.
const maxPartialReveal = 4

// validateEntries checks the whole table (fail-fast, first error wins):
// totality, per-entry shape, admin exactness, small reveals, monotonicity.
func validateEntries(entries map[domain.DataType]map[domain.ViewerTier]RevealSpec) error {
	for dt, row := range entries {
		if !dt.IsValid() {
			return newValidationError(string(dt), "", "", fmt.Errorf("unknown data type"))
		}
		for tier := range row {
			if !tier.IsValid() {
				return newValidationError(string(dt), string(tier), "", fmt.Errorf("unknown viewer tier"))
			}
		}
	}

	for _, dt := range domain.AllDataTypes() {
		row, ok := entries[dt]
		if !ok {
			return newValidationError(string(dt), "", "", fmt.Errorf("data type has no rules"))
		}

		var prev *RevealSpec
		var prevTier domain.ViewerTier
		for _, tier := range domain.AllViewerTiers() {
			spec, ok := row[tier]
			if !ok {
				return newValidationError(string(dt), string(tier), "", fmt.Errorf("missing rule"))
			}
			if err := validateSpec(dt, tier, spec); err != nil {
				return err
			}
			if prev != nil && !spec.DisclosesAtLeast(*prev) {
				return newValidationError(string(dt), string(tier), "",
					fmt.Errorf("discloses less than lower tier %q", prevTier))
			}
			prev, prevTier = &spec, tier
		}
	}
	return nil
}

// validateSpec checks a single entry's shape. It is shared with overrides.
func validateSpec(dt domain.DataType, tier domain.ViewerTier, spec RevealSpec) error {
	dtName, tierName := string(dt), string(tier)

	if spec.MaskToken == "" {
		return newValidationError(dtName, tierName, "mask_token", fmt.Errorf("required"))
	}

	if tier == domain.TierAdmin && !spec.Exact {
		return newValidationError(dtName, tierName, "exact", fmt.Errorf("admin tier must reveal the exact value"))
	}
	if tier != domain.TierAdmin && spec.Exact {
		return newValidationError(dtName, tierName, "exact", fmt.Errorf("only the admin tier may reveal the exact value"))
	}
	if spec.Exact {
		return nil
	}

	if spec.Prefix < 0 {
		return newValidationError(dtName, tierName, "prefix", fmt.Errorf("must not be negative"))
	}
	if spec.Suffix < 0 {
		return newValidationError(dtName, tierName, "suffix", fmt.Errorf("must not be negative"))
	}
	if spec.Prefix > maxPartialReveal || spec.Suffix > maxPartialReveal {
		return newValidationError(dtName, tierName, "prefix",
			fmt.Errorf("reveals %d characters; at most %d per end below admin", spec.revealedChars(), maxPartialReveal))
	}
	if spec.RevealTokens < 0 {
		return newValidationError(dtName, tierName, "reveal_tokens", fmt.Errorf("must not be negative"))
	}

	if dt != domain.DataTypeAmount && spec.Fill == "" {
		return newValidationError(dtName, tierName, "fill", fmt.Errorf("required"))
	}

	switch dt {
	case domain.DataTypeEmail:
		if !spec.Domain.IsValid() {
			return newValidationError(dtName, tierName, "domain", fmt.Errorf("invalid domain reveal %q", spec.Domain))
		}
	default:
		if spec.Domain != "" {
			return newValidationError(dtName, tierName, "domain", fmt.Errorf("only valid for email"))
		}
	}

	if dt != domain.DataTypeName && spec.RevealTokens != 0 {
		return newValidationError(dtName, tierName, "reveal_tokens", fmt.Errorf("only valid for name"))
	}
	if dt == domain.DataTypeName && spec.Suffix != 0 {
		return newValidationError(dtName, tierName, "suffix", fmt.Errorf("not supported for name"))
	}

	if dt == domain.DataTypeAmount {
		if spec.Prefix != 0 || spec.Suffix != 0 {
			return newValidationError(dtName, tierName, "prefix", fmt.Errorf("not supported for amount"))
		}
		if len(spec.Boundaries) == 0 {
			return newValidationError(dtName, tierName, "boundaries", fmt.Errorf("required"))
		}
		for _, b := range spec.Boundaries {
			if math.IsNaN(b) || math.IsInf(b, 0) {
				return newValidationError(dtName, tierName, "boundaries", fmt.Errorf("must be finite"))
			}
		}
		if spec.Boundaries[0] < 0 {
			return newValidationError(dtName, tierName, "boundaries", fmt.Errorf("first boundary must not be negative"))
		}
		for i := 1; i < len(spec.Boundaries); i++ {
			if spec.Boundaries[i] <= spec.Boundaries[i-1] {
				return newValidationError(dtName, tierName, "boundaries", fmt.Errorf("must be strictly ascending"))
			}
		}
	} else if len(spec.Boundaries) != 0 {
		return newValidationError(dtName, tierName, "boundaries", fmt.Errorf("only valid for amount"))
	}

	return nil
}
