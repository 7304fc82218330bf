package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/shiplabel/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for batch
// history. RemoteAddr has already been resolved by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
