// Package service is the masking entry point: it resolves the reveal rule for
// a (data type, viewer tier) pair, applies it, appends a correlation tag when
// deterministic mode is on, and records full reveals and policy fallbacks in
// the audit trail.
//
// Every exported method is total. Malformed values, unknown data types and
// unknown tiers all resolve to the most restrictive output; none of them
// surface as an error or a panic.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tiermask/internal/masking/masker"
	"tiermask/internal/masking/metrics"
	"tiermask/internal/masking/obfuscator"
	"tiermask/internal/masking/policy"
	"tiermask/internal/platform/logger"
	"tiermask/pkg/domain"
	"tiermask/pkg/platform/audit"
	"tiermask/pkg/requestcontext"
)

// FallbackRuleID is reported when no policy rule applied.
const FallbackRuleID = "fallback"

// fallbackToken is emitted for data types outside the closed set.
const fallbackToken = "***"

// Result is the outcome of masking one value.
type Result struct {
	// Value is the masked (or revealed) output. Empty when Null is set.
	Value string
	// Null is true when the input was nil, empty or whitespace only.
	Null bool
	// Revealed is true when Value is the raw input unmodified.
	Revealed bool
	// Malformed is true when the input did not parse as its data type.
	Malformed bool
	// Fallback is true when the data type or tier was unknown.
	Fallback bool
	// RuleID identifies the policy rule applied.
	RuleID string
}

// Ptr returns the result in the string-or-null shape.
func (r Result) Ptr() *string {
	if r.Null {
		return nil
	}
	v := r.Value
	return &v
}

// Service masks values against an immutable policy table. It is safe for
// concurrent use.
type Service struct {
	table      *policy.Table
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      audit.Sink
	obfuscator *obfuscator.Obfuscator
	production bool
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditSink sets the sink that receives full-reveal and fallback
// records. Without it auditing is disabled.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

// WithObfuscator turns on deterministic mode: masked outputs carry a
// correlation tag derived from the raw value.
func WithObfuscator(o *obfuscator.Obfuscator) Option {
	return func(s *Service) {
		s.obfuscator = o
	}
}

// WithEnvironment sets how loudly policy fallbacks are logged: Warn in
// production, Error elsewhere.
func WithEnvironment(production bool) Option {
	return func(s *Service) {
		s.production = production
	}
}

// New constructs a Service over a validated table.
func New(table *policy.Table, opts ...Option) *Service {
	s := &Service{
		table:  table,
		logger: logger.Discard(),
		audit:  audit.Nop{},
		tracer: otel.Tracer("tiermask/masking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	return s
}

// Policy returns the table the service masks against.
func (s *Service) Policy() *policy.Table {
	return s.table
}

// Deterministic reports whether correlation tags are appended.
func (s *Service) Deterministic() bool {
	return s.obfuscator != nil
}

// Mask masks raw for a viewer of the given tier. raw may be nil, a string,
// *string, any integer or float type, or json.Number; other shapes are
// treated as malformed.
func (s *Service) Mask(ctx context.Context, raw any, dt domain.DataType, tier domain.ViewerTier) Result {
	return s.mask(ctx, "", raw, dt, tier, nil)
}

// MaskValue is Mask in the string-or-null shape: nil for null input,
// otherwise the masked string.
func (s *Service) MaskValue(ctx context.Context, raw any, dt domain.DataType, tier domain.ViewerTier) *string {
	return s.Mask(ctx, raw, dt, tier).Ptr()
}

// mask is the single masking path. A non-nil override replaces the table
// lookup for a known tier.
func (s *Service) mask(ctx context.Context, field string, raw any, dt domain.DataType, tier domain.ViewerTier, override *policy.RevealSpec) Result {
	if isNull(raw) {
		return Result{Null: true}
	}
	value, ok := formatRaw(raw)

	if !dt.IsValid() {
		return s.fallback(ctx, field, dt, tier, audit.ReasonUnknownDataType, fallbackToken)
	}
	if !tier.IsValid() {
		spec, _ := s.table.MostRestrictive(dt)
		return s.fallback(ctx, field, dt, tier, audit.ReasonUnknownTier, spec.MaskToken)
	}

	var spec policy.RevealSpec
	if override != nil {
		spec = *override
	} else {
		spec, _ = s.table.Lookup(dt, tier)
	}

	s.metrics.IncrementMasked(dt, tier)

	if !ok {
		s.metrics.IncrementMalformed(dt)
		return Result{Value: spec.MaskToken, Malformed: true, RuleID: spec.RuleID()}
	}

	out := masker.Apply(value, dt, spec)
	res := Result{
		Value:     out.Value,
		Revealed:  out.Revealed,
		Malformed: out.Malformed,
		RuleID:    spec.RuleID(),
	}

	switch {
	case out.Revealed:
		s.metrics.IncrementFullReveal(dt)
		s.record(ctx, audit.Record{
			Tier:       tier.String(),
			DataType:   dt.String(),
			Field:      field,
			RuleID:     spec.RuleID(),
			FullReveal: true,
			Reason:     audit.ReasonFullReveal,
		})
	case out.Malformed:
		s.metrics.IncrementMalformed(dt)
	case s.obfuscator != nil:
		res.Value = s.obfuscator.Apply(out.Value, s.obfuscator.Tag(dt.String(), value))
	}

	return res
}

// fallback resolves a configuration error to the most restrictive output.
// Unknown values are caller bugs, so they are logged loudly and audited.
func (s *Service) fallback(ctx context.Context, field string, dt domain.DataType, tier domain.ViewerTier, reason audit.Reason, token string) Result {
	level := slog.LevelError
	if s.production {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "masking policy fallback",
		"request_id", requestcontext.RequestID(ctx),
		"data_type", string(dt),
		"tier", string(tier),
		"field", field,
		"reason", string(reason),
	)
	s.metrics.IncrementMasked(dt, tier)
	s.metrics.IncrementFallback(string(reason))
	s.record(ctx, audit.Record{
		Tier:     string(tier),
		DataType: string(dt),
		Field:    field,
		RuleID:   FallbackRuleID,
		Fallback: true,
		Reason:   reason,
	})
	return Result{Value: token, Fallback: true, RuleID: FallbackRuleID}
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	rec.ViewerID = requestcontext.ViewerID(ctx)
	rec.RequestID = requestcontext.RequestID(ctx)
	rec.Timestamp = requestcontext.Now(ctx)
	rec.PolicyVersion = s.table.Version()
	s.audit.Record(ctx, rec)
}
