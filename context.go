package goCrud

import "context"

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP attaches the caller's IP address to ctx. Login throttling
// charges failed attempts against it and audit events record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// clientIPFromContext returns "" when no address was attached.
func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}
