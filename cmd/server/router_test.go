package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	maskmetrics "tiermask/internal/masking/metrics"
	"tiermask/internal/masking/policy"
	"tiermask/internal/masking/service"
	"tiermask/internal/platform/config"
	"tiermask/internal/platform/metrics"
	"tiermask/pkg/platform/middleware/metadata"
	"tiermask/pkg/platform/middleware/upstream"
	"tiermask/pkg/platform/middleware/viewer"
	"tiermask/pkg/testutil"
)

func newTestRouter(t *testing.T, cfg *config.Config, backend *auditBackend) (http.Handler, *prometheus.Registry) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	reg := metrics.NewRegistry()
	svc := service.New(policy.MustDefault(),
		service.WithLogger(log),
		service.WithMetrics(maskmetrics.New(reg)),
	)
	return newRouter(cfg, svc, reg, backend, log), reg
}

func TestRouter(t *testing.T) {
	testutil.Given(t, "the HTTP router without an upstream token", func(t *testing.T) {
		router, _ := newTestRouter(t, config.Default(), nil)

		testutil.When(t, "calling POST /v1/mask as a gold viewer", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/mask", `{"value":"john.doe@example.com","data_type":"email"}`)
			req.Header.Set(viewer.HeaderTier, "gold")
			req.Header.Set(metadata.HeaderRequestID, "req-7")
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it masks the value and echoes the request id", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				if !strings.Contains(rec.Body.String(), `"jo***@example.com"`) {
					t.Fatalf("unexpected body %s", rec.Body.String())
				}
				if got := rec.Header().Get(metadata.HeaderRequestID); got != "req-7" {
					t.Fatalf("expected request id req-7, got %q", got)
				}
			})
		})

		testutil.When(t, "calling GET /metrics after a mask call", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			testutil.Then(t, "it exposes the masking counters", func(t *testing.T) {
				if !strings.Contains(rec.Body.String(), `tiermask_masked_total{data_type="email",tier="gold"} 1`) {
					t.Fatalf("masked counter missing from metrics output")
				}
			})
		})

		testutil.When(t, "calling GET /healthz with no audit backend", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			testutil.Then(t, "it reports ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})
	})

	testutil.Given(t, "the HTTP router with an upstream token", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.UpstreamToken = "upstream-secret"
		router, _ := newTestRouter(t, cfg, nil)

		testutil.When(t, "the token is missing", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/mask", `{"value":"x","data_type":"name"}`)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it rejects the request", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "the token is present", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/mask", `{"value":"Jane Doe","data_type":"name"}`)
			req.Header.Set(upstream.HeaderToken, "upstream-secret")
			req.Header.Set(viewer.HeaderTier, "basic")
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it masks the value", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling GET /healthz without the token", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			testutil.Then(t, "health stays reachable", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})
	})

	testutil.Given(t, "an unhealthy audit backend", func(t *testing.T) {
		backend := &auditBackend{health: func(context.Context) error { return errors.New("connection refused") }}
		router, _ := newTestRouter(t, config.Default(), backend)

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			testutil.Then(t, "it reports degraded", func(t *testing.T) {
				if rec.Code != http.StatusServiceUnavailable {
					t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
				}
			})
		})
	})
}

func TestOpenAuditBackendMemory(t *testing.T) {
	backend, err := openAuditBackend(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("open memory backend: %v", err)
	}
	defer backend.close()
	if backend.store == nil {
		t.Fatalf("expected a store")
	}
}

func TestOpenAuditBackendRejectsUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Backend = "s3"
	if _, err := openAuditBackend(context.Background(), cfg); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}
