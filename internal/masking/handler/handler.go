package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tiermask/internal/masking/policy"
	"tiermask/internal/masking/service"
	"tiermask/pkg/domain"
	dErrors "tiermask/pkg/domain-errors"
	"tiermask/pkg/platform/httputil"
	"tiermask/pkg/platform/middleware/viewer"
	"tiermask/pkg/requestcontext"
)

// Service defines the masking operations the handler exposes.
type Service interface {
	Mask(ctx context.Context, raw any, dt domain.DataType, tier domain.ViewerTier) service.Result
	MaskRecordWithOverrides(ctx context.Context, record map[string]any, fieldMap map[string]domain.DataType, overrides *policy.Overrides, tier domain.ViewerTier) map[string]any
	Policy() *policy.Table
}

// Handler wires masking endpoints to the masking service. The viewer tier
// comes from viewer.Middleware.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a masking handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts masking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/mask", h.HandleMask)
	r.Post("/v1/mask/record", h.HandleMaskRecord)
}

// HandleMask handles POST /v1/mask requests.
func (h *Handler) HandleMask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[MaskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tier := viewer.Tier(ctx)
	res := h.service.Mask(ctx, req.Value, req.ParsedDataType(), tier)

	h.logger.InfoContext(ctx, "value masked",
		"request_id", requestID,
		"data_type", req.DataType,
		"tier", string(tier),
		"rule_id", res.RuleID,
		"fallback", res.Fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(res))
}

// HandleMaskRecord handles POST /v1/mask/record requests.
func (h *Handler) HandleMaskRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[MaskRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var overrides *policy.Overrides
	if len(req.Overrides) > 0 {
		parsed, err := policy.ParseOverrides(h.service.Policy(), req.Overrides)
		if err != nil {
			h.logger.WarnContext(ctx, "rejected masking overrides",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
			return
		}
		overrides = parsed
	}

	tier := viewer.Tier(ctx)
	masked := h.service.MaskRecordWithOverrides(ctx, req.Record, req.ParsedFields(), overrides, tier)

	h.logger.InfoContext(ctx, "record masked",
		"request_id", requestID,
		"tier", string(tier),
		"fields", len(req.Fields),
		"overrides", overrides.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, &MaskRecordResponse{Record: masked})
}
