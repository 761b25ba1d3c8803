package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Black-And-White-Club/counting-bot/pkg/jwt"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
)

type claimsKey struct{}

// ClaimsFrom returns the operator claims stored by AuthMiddleware.
func ClaimsFrom(ctx context.Context) (*jwt.OperatorClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*jwt.OperatorClaims)
	return c, ok
}

// AuthMiddleware requires a valid "Authorization: Bearer" operator token.
func AuthMiddleware(tokens jwt.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(raw))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrExpiredToken) {
					msg = "token expired"
				}
				logger.DebugContext(r.Context(), "Rejected operator token",
					attr.String("path", r.URL.Path),
					attr.Error(err),
				)
				writeError(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
