// Package viewer reads the viewer identity and tier that a trusted upstream
// resolved for the request.
//
// The tier is stored as received. An absent or unknown tier is not rejected
// here: the masking service resolves it to the most restrictive output and
// records the fallback.
package viewer

import (
	"context"
	"net/http"
	"strings"

	"tiermask/pkg/domain"
	"tiermask/pkg/requestcontext"
)

const (
	HeaderTier = "X-Viewer-Tier"
	HeaderID   = "X-Viewer-ID"
)

type contextKeyTier struct{}

// Middleware copies the viewer headers into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = WithTier(ctx, domain.ViewerTier(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderTier)))))
		ctx = requestcontext.WithViewerID(ctx, strings.TrimSpace(r.Header.Get(HeaderID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Tier returns the viewer tier from the context, or "" when none was set.
func Tier(ctx context.Context) domain.ViewerTier {
	if t, ok := ctx.Value(contextKeyTier{}).(domain.ViewerTier); ok {
		return t
	}
	return ""
}

// WithTier injects a tier into the context.
func WithTier(ctx context.Context, tier domain.ViewerTier) context.Context {
	return context.WithValue(ctx, contextKeyTier{}, tier)
}
