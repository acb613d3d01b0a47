package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"tiermask/internal/masking/policy"
	"tiermask/pkg/domain"
	"tiermask/pkg/platform/audit"
)

// MaskRecord returns a copy of record in which every field named in fieldMap
// holds its masked value (nil for null input). Fields not in fieldMap are
// copied untouched; fields in fieldMap but absent from record stay absent.
// The input map is not modified.
func (s *Service) MaskRecord(ctx context.Context, record map[string]any, fieldMap map[string]domain.DataType, tier domain.ViewerTier) map[string]any {
	return s.MaskRecordWithOverrides(ctx, record, fieldMap, nil, tier)
}

// MaskRecordWithOverrides is MaskRecord with validated per-field overrides.
// An override only applies when its data type matches fieldMap; a mismatch
// is a caller bug and resolves to the most restrictive output.
func (s *Service) MaskRecordWithOverrides(ctx context.Context, record map[string]any, fieldMap map[string]domain.DataType, overrides *policy.Overrides, tier domain.ViewerTier) map[string]any {
	ctx, span := s.tracer.Start(ctx, "masking.MaskRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("tiermask.tier", string(tier)),
		attribute.Int("tiermask.fields", len(fieldMap)),
		attribute.Int("tiermask.overrides", overrides.Len()),
	)

	if record == nil {
		return nil
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	for field, dt := range fieldMap {
		raw, present := record[field]
		if !present {
			continue
		}
		out[field] = s.maskField(ctx, field, raw, dt, tier, overrides).nullable()
	}
	return out
}

func (s *Service) maskField(ctx context.Context, field string, raw any, dt domain.DataType, tier domain.ViewerTier, overrides *policy.Overrides) Result {
	ovDT, spec, ok := overrides.Lookup(field, tier)
	if !ok {
		return s.mask(ctx, field, raw, dt, tier, nil)
	}
	if ovDT != dt {
		if isNull(raw) {
			return Result{Null: true}
		}
		token := fallbackToken
		if base, found := s.table.MostRestrictive(dt); found {
			token = base.MaskToken
		}
		return s.fallback(ctx, field, dt, tier, audit.ReasonOverrideMismatch, token)
	}
	return s.mask(ctx, field, raw, dt, tier, &spec)
}

// nullable converts a Result to the value stored in a masked record.
func (r Result) nullable() any {
	if r.Null {
		return nil
	}
	return r.Value
}
