// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims (sub holds the user id) plus the
// account email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// SigningMethod resolves an HMAC algorithm name (HS256, HS384, HS512).
func SigningMethod(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", name)
}

// TokenManager signs and parses access tokens with a shared secret.
type TokenManager struct {
	secretKey        []byte
	method           jwt.SigningMethod
	validityDuration time.Duration
	now              func() time.Time
}

func NewTokenManager(secretKey []byte, algorithm string, validityDuration time.Duration) (*TokenManager, error) {
	method, err := SigningMethod(algorithm)
	if err != nil {
		return nil, err
	}
	return &TokenManager{secretKey: secretKey, method: method, validityDuration: validityDuration, now: time.Now}, nil
}

// GenerateToken returns a signed token for the user that expires after the
// configured validity duration.
func (m *TokenManager) GenerateToken(userID int64, email string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validityDuration)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies the signature and expiry and returns the
// subject. Expired tokens yield common.ErrTokenExpired; anything else that
// fails verification yields common.ErrInvalidToken.
func (m *TokenManager) GetUserIDFromToken(tokenString string) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, common.ErrTokenExpired
		}
		return 0, common.ErrInvalidToken
	}

	if !token.Valid {
		return 0, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidToken
	}

	return userID, nil
}
