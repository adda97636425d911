// Package shield provides the HTTP middleware stack of the designscore
// service: security headers, body limits, request tracing, per-IP rate
// limiting, maintenance mode and HEAD handling.
//
// Usage:
//
//	rl := shield.NewRateLimiter(db)
//	mm := shield.NewMaintenanceMode(db, "/health")
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(rl, mm) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/designscore/kit"
)

// MaxJSONBody is the request body cap applied to JSON API calls.
const MaxJSONBody = 64 * 1024

// DefaultStack returns the middleware stack of the API server, ordered:
// Maintenance → HeadToGet → SecurityHeaders → MaxBody → TraceID → RateLimiter.
// A nil rl or mm skips that layer.
func DefaultStack(rl *RateLimiter, mm *MaintenanceMode) []func(http.Handler) http.Handler {
	var stack []func(http.Handler) http.Handler
	if mm != nil {
		stack = append(stack, mm.Middleware)
	}
	stack = append(stack,
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(MaxJSONBody),
		TraceID,
	)
	if rl != nil {
		stack = append(stack, rl.Middleware)
	}
	return stack
}

// GetLogger retrieves the per-request logger set by TraceID.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	return kit.Logger(ctx, nil)
}
