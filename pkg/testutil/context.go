package testutil

import (
	"net/http"

	"tiermask/pkg/domain"
	"tiermask/pkg/platform/middleware/viewer"
	"tiermask/pkg/requestcontext"
)

// WithViewer sets the viewer tier and id on the request context, as
// viewer.Middleware would after reading the upstream headers.
func WithViewer(req *http.Request, tier domain.ViewerTier, viewerID string) *http.Request {
	ctx := viewer.WithTier(req.Context(), tier)
	ctx = requestcontext.WithViewerID(ctx, viewerID)
	return req.WithContext(ctx)
}
