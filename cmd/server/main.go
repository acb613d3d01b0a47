package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tiermask/internal/masking/handler"
	maskmetrics "tiermask/internal/masking/metrics"
	"tiermask/internal/masking/obfuscator"
	"tiermask/internal/masking/policy"
	"tiermask/internal/masking/service"
	"tiermask/internal/platform/config"
	"tiermask/internal/platform/httpserver"
	"tiermask/internal/platform/logger"
	"tiermask/internal/platform/metrics"
	"tiermask/pkg/platform/audit/sink"
	"tiermask/pkg/platform/circuit"
	"tiermask/pkg/platform/httputil"
	"tiermask/pkg/platform/middleware/metadata"
	"tiermask/pkg/platform/middleware/requesttime"
	"tiermask/pkg/platform/middleware/upstream"
	"tiermask/pkg/platform/middleware/viewer"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Masking logic lives in internal/masking.
func main() {
	configPath := flag.String("config", os.Getenv("TIERMASK_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tiermask: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.IsProduction(), cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := loadPolicy(cfg)
	if err != nil {
		return err
	}
	log.Info("masking policy loaded", "version", table.Version())

	reg := metrics.NewRegistry()
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(maskmetrics.New(reg)),
		service.WithEnvironment(cfg.IsProduction()),
	}

	if cfg.Masking.Deterministic {
		obf, err := obfuscator.New([]byte(cfg.Masking.Salt.Value()), obfuscator.WithTagLength(cfg.Masking.TagLength))
		switch {
		case errors.Is(err, obfuscator.ErrNoSalt):
			log.Warn("deterministic masking requested without a salt; correlation tags disabled")
		case err != nil:
			return fmt.Errorf("deterministic masking: %w", err)
		default:
			opts = append(opts, service.WithObfuscator(obf))
			log.Info("deterministic masking enabled", "salt_generation", obf.Generation(), "tag_length", obf.TagLength())
		}
	}

	var (
		auditSink *sink.Sink
		backend   *auditBackend
	)
	if cfg.Masking.Audit {
		backend, err = openAuditBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("audit backend %s: %w", cfg.Audit.Backend, err)
		}
		defer backend.close()

		auditSink = sink.New(backend.store,
			sink.WithLogger(log),
			sink.WithMetrics(sink.NewMetrics(reg)),
			sink.WithBufferSize(cfg.Audit.BufferSize),
			sink.WithBatchSize(cfg.Audit.BatchSize),
			sink.WithFlushInterval(cfg.Audit.FlushInterval),
			sink.WithPersistTimeout(cfg.Audit.PersistTimeout),
			sink.WithBreaker(circuit.New("audit-store")),
		)
		opts = append(opts, service.WithAuditSink(auditSink))
		log.Info("audit logging enabled", "backend", cfg.Audit.Backend)
	} else {
		log.Warn("audit logging disabled; full reveals are not recorded")
	}

	svc := service.New(table, opts...)

	router := newRouter(cfg, svc, reg, backend, log)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.ReadHeaderTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tiermask", "addr", cfg.Server.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("graceful shutdown failed: %w", err))
		}
		if auditSink != nil {
			if err := auditSink.Close(shutdownCtx); err != nil {
				log.Error("audit sink did not drain", "error", err)
				errs = append(errs, err)
			}
		}
		log.Info("tiermask stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newRouter mounts the masking endpoints behind the upstream and viewer
// middleware, plus the unauthenticated health and metrics endpoints.
func newRouter(cfg *config.Config, svc *service.Service, reg *prometheus.Registry, backend *auditBackend, log *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(metadata.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Get("/healthz", healthHandler(backend, log))
	router.Handle("/metrics", metrics.Handler(reg))
	router.Group(func(r chi.Router) {
		r.Use(upstream.RequireToken(cfg.Server.UpstreamToken.Value(), log))
		r.Use(viewer.Middleware)
		handler.New(svc, log).Register(r)
	})
	return router
}

func loadPolicy(cfg *config.Config) (*policy.Table, error) {
	if cfg.Masking.PolicyFile == "" {
		return policy.Default()
	}
	return policy.LoadFile(cfg.Masking.PolicyFile)
}

func healthHandler(backend *auditBackend, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if backend != nil && backend.health != nil {
			if err := backend.health(r.Context()); err != nil {
				log.WarnContext(r.Context(), "audit backend unhealthy", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
