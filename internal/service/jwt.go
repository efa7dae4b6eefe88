package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the lifetime of both the token and the cookie carrying it.
const SessionTTL = time.Hour

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type sessionClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies stateless session tokens. Validity depends
// only on the signature and the expiry, nothing is stored server-side.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string) (*SessionTokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &SessionTokens{secret: []byte(secret), ttl: SessionTTL, now: time.Now}, nil
}

func (s *SessionTokens) TTL() time.Duration {
	return s.ttl
}

func (s *SessionTokens) Issue(userID int64) (string, error) {
	now := s.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse returns the user id embedded in a valid token.
func (s *SessionTokens) Parse(tokenString string) (int64, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}
