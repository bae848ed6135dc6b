// internal/api/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/bsse/smashcourt/internal/api/authz"
	"github.com/bsse/smashcourt/internal/db"
)

// TokenTTL matches the club's session length.
const TokenTTL = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the caller's identity in the bearer token. Subject is the
// user ID; Role mirrors users.user_type so the admin gate needs no lookup.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for user valid for TokenTTL.
func IssueToken(secret []byte, user db.User) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an HS256 token and returns the caller it identifies.
func ParseToken(secret []byte, tokenString string) (*authz.AuthUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	return &authz.AuthUser{
		ID:       userID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
