package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID   string `json:"user_id"`
	StudioID string `json:"studio_id"`
	// Authorities — права из токена, напр. "UPDATE_CLIENT": true
	Authorities map[string]bool `json:"authorities"`
	jwt.RegisteredClaims
}

// CallCtx собирает пер-запросный контекст вызова из проверенных claims.
func (c *CustomClaims) CallCtx(sessionID string) Ctx {
	auths := make(map[Authority]bool, len(c.Authorities))
	for a, ok := range c.Authorities {
		if ok {
			auths[Authority(a)] = true
		}
	}
	return Ctx{
		StudioID:    c.StudioID,
		UserID:      c.UserID,
		SessionID:   sessionID,
		Authorities: auths,
	}
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

// Operator — пользователь консоли (ревьюер Proposal).
type Operator struct {
	ID           string          `json:"id"`
	StudioID     string          `json:"studio_id"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"` // Никогда не отправляем на фронт
	Role         string          `json:"role"`
	Authorities  map[string]bool `json:"authorities"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
