// Package clientip carries the (possibly simulated) client IP through the
// request context so audit events can record it without widening every
// service signature.
package clientip

import "context"

type ctxKey struct{}

// WithIP returns a context carrying the client IP.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// FromContext returns the client IP stored in ctx, or "" when absent.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}
