package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/datapoint/internal/core"
)

// WithRequestMetadata stores the caller of r in ctx for its run record.
// RemoteAddr has already been rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithClient(ctx, core.Client{IP: clientIP(r), UserAgent: r.UserAgent()})
}
