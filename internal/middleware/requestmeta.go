package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkguard/internal/handlers"
)

// RequestMeta is a middleware that adds client and origin details to the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
			Scheme:    scheme(ctx),
			Host:      publicHost(ctx),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	// X-Forwarded-For may carry a chain; the first entry is the original client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}

func scheme(ctx huma.Context) string {
	if proto := firstValue(ctx.Header("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(proto)
	}

	if ctx.TLS() != nil {
		return "https"
	}

	return "http"
}

func publicHost(ctx huma.Context) string {
	if host := firstValue(ctx.Header("X-Forwarded-Host")); host != "" {
		return host
	}

	if host := ctx.Host(); host != "" {
		return host
	}

	return "localhost"
}

func firstValue(header string) string {
	first, _, _ := strings.Cut(header, ",")

	return strings.TrimSpace(first)
}
