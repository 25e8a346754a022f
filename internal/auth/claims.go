package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
// The backend owns verification; this is only used for diagnostics.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

func (i TokenInfo) Expired() bool {
	return !i.ExpiresAt.IsZero() && time.Now().After(i.ExpiresAt)
}

// Describe returns the subject and expiry of a JWT bearer token. Opaque
// tokens yield a zero TokenInfo.
func Describe(token string) TokenInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}
	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if info.Subject == "" {
		if userID, ok := claims["user_id"]; ok {
			if s, ok := userID.(string); ok {
				info.Subject = s
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}
