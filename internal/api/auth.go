// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims on authenticated requests.
const ClaimsContextKey contextKey = "claims"

// Claims are the JWT claims accepted by the API.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenValidator validates HS256 bearer tokens signed with a shared secret.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns a validator for secret. An empty secret is an
// error; callers disable auth by not installing the middleware.
func NewTokenValidator(secret string) (*TokenValidator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenValidator{secret: []byte(secret)}, nil
}

// Validate parses and verifies a signed token.
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Issue signs a token for subject valid for ttl. Used by operators and tests.
func (v *TokenValidator) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the "token" cookie for browser websocket clients.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", ErrMissingToken
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}
