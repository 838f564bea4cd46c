package middleware

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkguard/internal/auth"
	"go.uber.org/zap"
)

// Authenticate resolves a bearer token into an auth.Principal on the request context.
// Requests without an Authorization header pass through anonymously; handlers that
// need a principal reject them. A present but invalid token is rejected with 401.
func Authenticate(api huma.API, verifier auth.Verifier, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		if header == "" {
			next(ctx)

			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized")

			return
		}

		p, err := verifier.Verify(ctx.Context(), strings.TrimSpace(token))
		if err != nil {
			logger.Debug("rejected bearer token", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized")

			return
		}

		next(huma.WithContext(ctx, auth.WithPrincipal(ctx.Context(), p)))
	}
}
