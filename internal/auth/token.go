package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies signed access tokens carrying the email
// claim. The signing key is process-wide configuration loaded at startup.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given email. The token expires at midnight UTC
// of the same calendar day one year ahead, as computed by ExpiryDate.
func (i *TokenIssuer) Issue(email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := ExpiryDate(now)

	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning the email claim.
// Fails with ErrInvalidToken on a bad signature, wrong algorithm, expiry,
// or a missing email claim.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Email) == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

// ExpiryDate returns midnight UTC of the same calendar day one year after
// now. time.Date normalization decides the leap-day case: a Feb 29 issue
// date expires on Mar 1 of the following year.
func ExpiryDate(now time.Time) time.Time {
	year, month, day := now.UTC().Date()
	return time.Date(year+1, month, day, 0, 0, 0, 0, time.UTC)
}
