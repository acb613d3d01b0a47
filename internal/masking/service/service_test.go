package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tiermask/internal/masking/metrics"
	"tiermask/internal/masking/obfuscator"
	"tiermask/internal/masking/policy"
	"tiermask/pkg/domain"
	"tiermask/pkg/platform/audit"
	auditmocks "tiermask/pkg/platform/audit/mocks"
	"tiermask/pkg/requestcontext"
)

// =============================================================================
// Masking Service Test Suite
// =============================================================================
// Justification for unit tests: the service is where null handling, policy
// fallback, audit emission and correlation tags meet. Each rule has a precise
// observable effect (output, audit record, counter) that is easiest to pin
// down with a mocked sink and an isolated metrics registry.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	sink    *auditmocks.MockSink
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sink = auditmocks.NewMockSink(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.service = New(policy.MustDefault(),
		WithAuditSink(s.sink),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
	)

	ctx := requestcontext.WithViewerID(context.Background(), "analyst-17")
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	s.ctx = requestcontext.WithTime(ctx, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// captureAudit expects exactly one audit record and returns a pointer that is
// filled when it arrives.
func (s *ServiceSuite) captureAudit() *audit.Record {
	got := &audit.Record{}
	s.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Times(1).Do(func(_ context.Context, r audit.Record) {
		*got = r
	})
	return got
}

// =============================================================================
// Concrete Scenarios
// =============================================================================

func (s *ServiceSuite) TestMaskScenarios() {
	tests := []struct {
		name string
		raw  any
		dt   domain.DataType
		tier domain.ViewerTier
		want string
	}{
		{"email basic", "john.doe@example.com", domain.DataTypeEmail, domain.TierBasic, "***@***.***"},
		{"email gold", "john.doe@example.com", domain.DataTypeEmail, domain.TierGold, "jo***@example.com"},
		{"iban basic", "SK3112000000198742637541", domain.DataTypeIBAN, domain.TierBasic, "****-****-****-7541"},
		{"amount int basic", 15000, domain.DataTypeAmount, domain.TierBasic, "10000-50000"},
		{"amount float gold", 15000.0, domain.DataTypeAmount, domain.TierGold, "10000-25000"},
		{"amount json number", json.Number("15000"), domain.DataTypeAmount, domain.TierStandard, "10000-50000"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			res := s.service.Mask(s.ctx, tt.raw, tt.dt, tt.tier)
			s.Equal(tt.want, res.Value)
			s.False(res.Null)
			s.False(res.Revealed)
			s.Equal(string(tt.dt)+"/"+string(tt.tier), res.RuleID)
		})
	}
}

// =============================================================================
// Full Reveal Audit
// =============================================================================
// Justification: every admin reveal must leave exactly one audit record
// carrying the request identity and the policy version.

func (s *ServiceSuite) TestAdminRevealIsAudited() {
	s.Run("email is returned unmodified with one audit record", func() {
		got := s.captureAudit()

		res := s.service.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.TierAdmin)

		s.Equal("john.doe@example.com", res.Value)
		s.True(res.Revealed)
		s.True(got.FullReveal)
		s.False(got.Fallback)
		s.Equal(audit.ReasonFullReveal, got.Reason)
		s.Equal("analyst-17", got.ViewerID)
		s.Equal("req-1", got.RequestID)
		s.Equal("admin", got.Tier)
		s.Equal("email", got.DataType)
		s.Equal("email/admin", got.RuleID)
		s.Equal(policy.DefaultVersion, got.PolicyVersion)
		s.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), got.Timestamp)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.FullReveals.WithLabelValues("email")))
	})

	s.Run("amounts keep their exact representation", func() {
		s.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Times(3)

		s.Equal("15000", s.service.Mask(s.ctx, 15000, domain.DataTypeAmount, domain.TierAdmin).Value)
		s.Equal("15000.25", s.service.Mask(s.ctx, 15000.25, domain.DataTypeAmount, domain.TierAdmin).Value)
		s.Equal("SK3112000000198742637541",
			s.service.Mask(s.ctx, "SK3112000000198742637541", domain.DataTypeIBAN, domain.TierAdmin).Value)
	})
}

func (s *ServiceSuite) TestAdminRevealsEveryDataType() {
	samples := map[domain.DataType]string{
		domain.DataTypeEmail:  "John.Doe@Example.com",
		domain.DataTypePhone:  "+421 905 123 456",
		domain.DataTypeIBAN:   "sk31 1200 0000 1987 4263 7541",
		domain.DataTypeName:   "Jean  Luc Picard",
		domain.DataTypeWallet: "0x52908400098527886E0F7030069857D2E4169EE7",
		domain.DataTypeIP:     "fe80::1",
		domain.DataTypePlate:  "ba 123 xy",
		domain.DataTypeVIN:    "1hgcm82633a004352",
		domain.DataTypeAmount: "15000.50",
	}
	s.Require().Len(samples, len(domain.AllDataTypes()))

	for _, dt := range domain.AllDataTypes() {
		raw, ok := samples[dt]
		s.Require().True(ok, dt.String())

		s.Run(dt.String(), func() {
			// A controller per case so Times(1) binds to this call alone.
			ctrl := gomock.NewController(s.T())
			sink := auditmocks.NewMockSink(ctrl)
			svc := New(policy.MustDefault(), WithAuditSink(sink), WithMetrics(metrics.New(prometheus.NewRegistry())))

			var got audit.Record
			sink.EXPECT().Record(gomock.Any(), gomock.Any()).Times(1).Do(func(_ context.Context, r audit.Record) {
				got = r
			})

			res := svc.Mask(s.ctx, raw, dt, domain.TierAdmin)
			ctrl.Finish()

			s.Equal(raw, res.Value)
			s.True(res.Revealed)
			s.False(res.Malformed)
			s.False(res.Fallback)
			s.True(got.FullReveal)
			s.Equal(dt.String(), got.DataType)
			s.Equal(dt.String()+"/admin", got.RuleID)
		})
	}
}

// =============================================================================
// Null Propagation
// =============================================================================

func (s *ServiceSuite) TestNullInput() {
	var nilString *string
	for _, raw := range []any{nil, "", "   \t", nilString} {
		for _, tier := range domain.AllViewerTiers() {
			res := s.service.Mask(s.ctx, raw, domain.DataTypeEmail, tier)
			s.True(res.Null, "raw=%#v tier=%s", raw, tier)
			s.Nil(res.Ptr())
			s.Nil(s.service.MaskValue(s.ctx, raw, domain.DataTypeEmail, tier))
		}
	}
	// The mock sink fails the test on any Record call.
}

// =============================================================================
// Policy Fallback
// =============================================================================
// Justification: unknown tiers and data types are caller bugs. They must
// resolve to the most restrictive output and be visible in logs, metrics and
// the audit trail without failing the request.

func (s *ServiceSuite) TestFallback() {
	s.Run("unknown tier yields the type's mask token", func() {
		got := s.captureAudit()

		res := s.service.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.ViewerTier("platinum"))

		s.Equal("***@***.***", res.Value)
		s.True(res.Fallback)
		s.Equal(FallbackRuleID, res.RuleID)
		s.True(got.Fallback)
		s.Equal(audit.ReasonUnknownTier, got.Reason)
		s.Equal("platinum", got.Tier)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.PolicyFallbacks.WithLabelValues("unknown_tier")))
		s.Equal(1.0, promtest.ToFloat64(s.metrics.Masked.WithLabelValues("email", "unknown")))
	})

	s.Run("unknown data type yields the generic token", func() {
		got := s.captureAudit()

		res := s.service.Mask(s.ctx, "4111111111111111", domain.DataType("card"), domain.TierAdmin)

		s.Equal("***", res.Value)
		s.True(res.Fallback)
		s.Equal(audit.ReasonUnknownDataType, got.Reason)
	})

	s.Run("development logs at error level without the raw value", func() {
		s.sink.EXPECT().Record(gomock.Any(), gomock.Any())
		s.logs.Reset()

		s.service.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.ViewerTier(""))

		s.Contains(s.logs.String(), "level=ERROR")
		s.Contains(s.logs.String(), "request_id=req-1")
		s.NotContains(s.logs.String(), "john.doe")
	})

	s.Run("production logs at warn level", func() {
		var logs bytes.Buffer
		svc := New(policy.MustDefault(),
			WithAuditSink(s.sink),
			WithEnvironment(true),
			WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		)
		s.sink.EXPECT().Record(gomock.Any(), gomock.Any())

		svc.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.ViewerTier("unknown"))

		s.Contains(logs.String(), "level=WARN")
	})
}

// =============================================================================
// Malformed Input
// =============================================================================

func (s *ServiceSuite) TestMalformedInput() {
	s.Run("value that does not parse as its type", func() {
		res := s.service.Mask(s.ctx, "not-an-email", domain.DataTypeEmail, domain.TierGold)
		s.Equal("***@***.***", res.Value)
		s.True(res.Malformed)
	})

	s.Run("unsupported input shape", func() {
		res := s.service.Mask(s.ctx, true, domain.DataTypeAmount, domain.TierGold)
		s.Equal("undisclosed", res.Value)
		s.True(res.Malformed)
		s.Equal(2.0, promtest.ToFloat64(s.metrics.Malformed.WithLabelValues("email"))+
			promtest.ToFloat64(s.metrics.Malformed.WithLabelValues("amount")))
	})

	s.Run("unsupported shape is not revealed to admin", func() {
		res := s.service.Mask(s.ctx, []string{"x"}, domain.DataTypeName, domain.TierAdmin)
		s.Equal("***", res.Value)
		s.False(res.Revealed)
	})
}

// =============================================================================
// Deterministic Mode
// =============================================================================

func (s *ServiceSuite) TestDeterministicTags() {
	obf, err := obfuscator.New([]byte("0123456789abcdef-salt"))
	s.Require().NoError(err)
	svc := New(policy.MustDefault(), WithAuditSink(s.sink), WithObfuscator(obf))
	s.True(svc.Deterministic())

	s.Run("masked output carries a stable tag", func() {
		a := svc.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.TierBasic)
		b := svc.Mask(s.ctx, "JOHN.DOE@example.com", domain.DataTypeEmail, domain.TierBasic)
		c := svc.Mask(s.ctx, "jane.doe@example.com", domain.DataTypeEmail, domain.TierBasic)

		tag := obf.Tag("email", "john.doe@example.com")
		s.Equal("***@***.***#"+tag, a.Value)
		s.Equal(a.Value, b.Value)
		s.NotEqual(a.Value, c.Value)
	})

	s.Run("revealed and malformed outputs are not tagged", func() {
		s.sink.EXPECT().Record(gomock.Any(), gomock.Any())

		s.Equal("john.doe@example.com",
			svc.Mask(s.ctx, "john.doe@example.com", domain.DataTypeEmail, domain.TierAdmin).Value)
		s.Equal("***@***.***",
			svc.Mask(s.ctx, "garbage", domain.DataTypeEmail, domain.TierGold).Value)
	})
}

// =============================================================================
// Record Masking
// =============================================================================

func (s *ServiceSuite) TestMaskRecord() {
	fields := map[string]domain.DataType{
		"email":   domain.DataTypeEmail,
		"iban":    domain.DataTypeIBAN,
		"phone":   domain.DataTypePhone,
		"missing": domain.DataTypeName,
	}

	s.Run("declared fields are masked and others copied", func() {
		record := map[string]any{
			"id":    42,
			"email": "john.doe@example.com",
			"iban":  "SK3112000000198742637541",
			"phone": nil,
			"note":  "kept",
		}

		out := s.service.MaskRecord(s.ctx, record, fields, domain.TierBasic)

		s.Equal(map[string]any{
			"id":    42,
			"email": "***@***.***",
			"iban":  "****-****-****-7541",
			"phone": nil,
			"note":  "kept",
		}, out)
		s.NotContains(out, "missing")
		s.Equal("john.doe@example.com", record["email"], "input must not be modified")
	})

	s.Run("nil record", func() {
		s.Nil(s.service.MaskRecord(s.ctx, nil, fields, domain.TierBasic))
	})

	s.Run("full reveals are audited per field", func() {
		got := s.captureAudit()

		out := s.service.MaskRecord(s.ctx, map[string]any{"email": "john.doe@example.com"}, fields, domain.TierAdmin)

		s.Equal("john.doe@example.com", out["email"])
		s.Equal("email", got.Field)
	})
}

func (s *ServiceSuite) TestMaskRecordWithOverrides() {
	table := s.service.Policy()
	overrides, err := policy.ParseOverrides(table, map[string]policy.OverrideInput{
		"contact": {
			DataType: "email",
			Rules: map[string]policy.Rule{
				"gold": {Prefix: 1, Fill: "***", MaskToken: "***@***.***", Domain: "tld"},
			},
		},
	})
	s.Require().NoError(err)

	s.Run("override tightens the gold rule", func() {
		out := s.service.MaskRecordWithOverrides(s.ctx,
			map[string]any{"contact": "john.doe@example.com"},
			map[string]domain.DataType{"contact": domain.DataTypeEmail},
			overrides, domain.TierGold)

		s.Equal("j***@***.com", out["contact"])
	})

	s.Run("tiers without an override use the table", func() {
		out := s.service.MaskRecordWithOverrides(s.ctx,
			map[string]any{"contact": "john.doe@example.com"},
			map[string]domain.DataType{"contact": domain.DataTypeEmail},
			overrides, domain.TierBasic)

		s.Equal("***@***.***", out["contact"])
	})

	s.Run("override for a different data type falls back", func() {
		got := s.captureAudit()

		out := s.service.MaskRecordWithOverrides(s.ctx,
			map[string]any{"contact": "+421905123456"},
			map[string]domain.DataType{"contact": domain.DataTypePhone},
			overrides, domain.TierGold)

		s.Equal("***", out["contact"])
		s.Equal(audit.ReasonOverrideMismatch, got.Reason)
		s.Equal("contact", got.Field)
	})
}

// =============================================================================
// Concurrent Use
// =============================================================================
// Justification: one Service is shared by every request goroutine. Run under
// -race, this pins that masking with tags, metrics and audit emission shares
// no unsynchronized state and that parallel callers see sequential results.

func (s *ServiceSuite) TestMaskRecordInParallel() {
	const workers, iterations = 16, 50

	obf, err := obfuscator.New([]byte("0123456789abcdef-salt"))
	s.Require().NoError(err)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := New(policy.MustDefault(), WithAuditSink(s.sink), WithMetrics(m), WithObfuscator(obf))

	fields := map[string]domain.DataType{
		"email": domain.DataTypeEmail,
		"phone": domain.DataTypePhone,
		"iban":  domain.DataTypeIBAN,
	}
	record := map[string]any{
		"id":    7,
		"email": "john.doe@example.com",
		"phone": "+421 905 123 456",
		"iban":  "SK3112000000198742637541",
	}

	tiers := domain.AllViewerTiers()
	reference := New(policy.MustDefault(), WithObfuscator(obf))
	want := make(map[domain.ViewerTier]map[string]any, len(tiers))
	for _, tier := range tiers {
		want[tier] = reference.MaskRecord(s.ctx, record, fields, tier)
	}

	adminWorkers := 0
	for w := range workers {
		if tiers[w%len(tiers)] == domain.TierAdmin {
			adminWorkers++
		}
	}
	s.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Times(adminWorkers * iterations * len(fields))

	var wg sync.WaitGroup
	results := make([][]map[string]any, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tier := tiers[w%len(tiers)]
			for range iterations {
				results[w] = append(results[w], svc.MaskRecord(s.ctx, record, fields, tier))
			}
		}()
	}
	wg.Wait()

	for w, outs := range results {
		tier := tiers[w%len(tiers)]
		for _, out := range outs {
			s.Equal(want[tier], out, "tier %s", tier)
		}
	}
	s.Equal("john.doe@example.com", record["email"], "shared input must not be modified")

	perTier := float64(workers / len(tiers) * iterations)
	s.Equal(perTier, promtest.ToFloat64(m.Masked.WithLabelValues("email", "basic")))
	s.Equal(perTier, promtest.ToFloat64(m.FullReveals.WithLabelValues("iban")))
}
