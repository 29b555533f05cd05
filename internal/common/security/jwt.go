package security

import (
	"time"

	"examtracker/internal/common"
	"examtracker/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 15 * time.Minute

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GenerateToken issues a signed bearer token for the given subject. A
// non-positive ttl falls back to the 15-minute default; the login flow passes
// the configured expiration instead.
func GenerateToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// VerifyToken checks signature and expiry and returns the subject. Every
// failure mode (malformed, forged, expired, missing subject) collapses into
// common.ErrInvalidToken so callers cannot probe which one occurred.
func VerifyToken(tokenString string) (string, error) {
	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	if err != nil {
		return "", common.ErrInvalidToken
	}
	subject := token.Subject()
	if subject == "" {
		return "", common.ErrInvalidToken
	}
	return subject, nil
}

// GetSubjectFromClaims extracts the subject from claims already decoded by
// the request verifier middleware.
func GetSubjectFromClaims(claims jwt.MapClaims) (string, error) {
	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", common.ErrInvalidToken
	}
	return subject, nil
}
