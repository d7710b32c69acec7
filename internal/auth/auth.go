// Package auth issues and checks credentials: bcrypt password digests and
// HS256 signed tokens that carry only the user id.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	m "coinfolio/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTTL  = 7 * 24 * time.Hour
	DefaultCost = 12

	// bcrypt only looks at the first 72 bytes.
	maxPasswordBytes = 72
)

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type Gate struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

type Option func(*Gate)

func WithCost(cost int) Option {
	return func(g *Gate) { g.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func NewGate(secret string, ttl time.Duration, opts ...Option) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Gate{
		secret: []byte(secret),
		ttl:    ttl,
		cost:   DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plain), g.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (g *Gate) VerifyPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// IssueToken signs a token for subject valid for the gate's ttl.
func (g *Gate) IssueToken(subject m.ID) (string, time.Time, error) {
	now := g.now()
	expiry := now.Add(g.ttl)
	claims := &Claims{
		UserID: subject.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiry, nil
}

// VerifyToken returns the subject of a valid token, or m.ErrInvalidToken.
func (g *Gate) VerifyToken(tokenString string) (m.ID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", errors.Join(m.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", m.ErrInvalidToken
	}

	id, err := m.ParseID(claims.UserID)
	if err != nil {
		return "", m.ErrInvalidToken
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
