package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/atelier-gate/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс, который должны реализовать и шлюз, и консоль
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

type claimsKeyType struct{}

var claimsKey claimsKeyType

// NewMiddleware проверяет RS256 токен и прокидывает claims в контекст запроса.
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *domain.CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom достает проверенные claims; nil, если middleware не отработал.
func ClaimsFrom(ctx context.Context) *domain.CustomClaims {
	if c, ok := ctx.Value(claimsKey).(*domain.CustomClaims); ok {
		return c
	}
	return nil
}
