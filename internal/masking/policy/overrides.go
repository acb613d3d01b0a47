package policy

import (
	"fmt"
	"strings"

	"tiermask/pkg/domain"
)

// OverrideInput is a per-record masking override as it arrives from an
// administrative update path. Rules is keyed by tier; tiers left out keep the
// base policy.
type OverrideInput struct {
	DataType string          `json:"data_type"`
	Rules    map[string]Rule `json:"rules"`
}

type fieldOverride struct {
	dataType domain.DataType
	specs    map[domain.ViewerTier]RevealSpec
}

// Overrides is a validated set of per-field rules. Every rule in it discloses
// no more than the base table for the same data type and tier.
type Overrides struct {
	fields map[string]fieldOverride
}

// ParseOverrides validates raw overrides against base. It rejects unknown
// fields, data types and tiers, malformed specs, and any rule that would
// reveal more than base at some tier.
func ParseOverrides(base *Table, raw map[string]OverrideInput) (*Overrides, error) {
	out := &Overrides{fields: make(map[string]fieldOverride, len(raw))}

	for field, in := range raw {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidOverride)
		}
		dt, err := domain.ParseDataType(in.DataType)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidOverride, field, err)
		}
		if len(in.Rules) == 0 {
			return nil, fmt.Errorf("%w: field %q: no rules", ErrInvalidOverride, field)
		}

		specs := make(map[domain.ViewerTier]RevealSpec, len(domain.AllViewerTiers()))
		for tierName, rule := range in.Rules {
			tier, err := domain.ParseViewerTier(tierName)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidOverride, field, err)
			}
			spec := rule.toSpec()
			spec.ID = "override/" + field + "/" + tier.String()
			if err := validateSpec(dt, tier, spec); err != nil {
				return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidOverride, field, err)
			}
			baseSpec, _ := base.Lookup(dt, tier)
			if !baseSpec.DisclosesAtLeast(spec) {
				return nil, fmt.Errorf("%w: field %q tier %q: override reveals more than the base policy",
					ErrInvalidOverride, field, tier)
			}
			specs[tier] = spec
		}

		// Fill the gaps from base and re-check ordering across the merged row.
		var prev *RevealSpec
		for _, tier := range domain.AllViewerTiers() {
			spec, ok := specs[tier]
			if !ok {
				spec, _ = base.Lookup(dt, tier)
				specs[tier] = spec
			}
			if prev != nil && !spec.DisclosesAtLeast(*prev) {
				return nil, fmt.Errorf("%w: field %q tier %q: discloses less than a lower tier",
					ErrInvalidOverride, field, tier)
			}
			prev = &spec
		}
		baseRow, _ := base.MostRestrictive(dt)
		setShortValueLength(specs, max(shortValueLength(specs), baseRow.ShortValueLength))

		out.fields[field] = fieldOverride{dataType: dt, specs: specs}
	}
	return out, nil
}

// Lookup returns the override for field at tier. ok is false when the field
// has no override or tier is unknown.
func (o *Overrides) Lookup(field string, tier domain.ViewerTier) (dt domain.DataType, spec RevealSpec, ok bool) {
	if o == nil {
		return "", RevealSpec{}, false
	}
	f, found := o.fields[field]
	if !found {
		return "", RevealSpec{}, false
	}
	spec, ok = f.specs[tier]
	if !ok {
		return "", RevealSpec{}, false
	}
	return f.dataType, spec.clone(), true
}

// Len reports how many fields carry an override.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}
