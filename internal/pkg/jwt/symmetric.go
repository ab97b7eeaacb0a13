package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kourier/otc/internal/pkg/clock"
)

// ErrInvalidToken is returned by Verify for any token that fails parsing,
// signature or claim checks.
var ErrInvalidToken = errors.New("jwt: invalid token")

// Symmetric implements JWT with HS256 and a shared secret.
type Symmetric struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	clock    clock.Clocker
}

// NewSymmetric builds an HS256 signer. lifetime bounds how long issued tokens
// stay valid.
func NewSymmetric(secret []byte, issuer string, lifetime time.Duration, clk clock.Clocker) *Symmetric {
	return &Symmetric{secret: secret, issuer: issuer, lifetime: lifetime, clock: clk}
}

// Generate implements JWT.
func (s *Symmetric) Generate(userID int64, email string, scopes ...string) (string, error) {
	now := s.clock.Now()

	clm := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		UserID: userID,
		Email:  email,
		Scopes: scopes,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, clm).SignedString(s.secret)
}

// Verify implements JWT.
func (s *Symmetric) Verify(token string) (*Claims, error) {
	clm := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, clm, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return clm, nil
}
