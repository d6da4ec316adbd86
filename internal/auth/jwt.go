// Package auth issues and validates the session tokens residents receive
// when they sign in with the email and phone number on the villa roster.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"villaledger/internal/core"
	"villaledger/internal/snapshot"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingToken       = errors.New("authorization token required")
	ErrInvalidCredentials = errors.New("no villa matches these credentials")
)

const issuer = "villaledger"

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// Claims are the session claims. The board flag reflects the roster at
// sign-in time; Session re-reads it from the current snapshot.
type Claims struct {
	VillaID string `json:"villa_id"`
	Email   string `json:"email"`
	Board   bool   `json:"board,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate creates a signed token for the resident of villa.
func (m *JWTManager) Generate(villa core.Villa) (string, error) {
	now := m.now()
	claims := &Claims{
		VillaID: villa.ID,
		Email:   villa.Email,
		Board:   villa.IsBoardMember,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   villa.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and validates a token, returning its claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login checks email and phone against the roster of snap and issues a
// token for the matching villa.
func (m *JWTManager) Login(snap *snapshot.Snapshot, email, phone string) (string, core.Session, error) {
	villa, ok := snap.FindVillaByLogin(strings.TrimSpace(email), strings.TrimSpace(phone))
	if !ok {
		return "", core.Anonymous, ErrInvalidCredentials
	}
	token, err := m.Generate(villa)
	if err != nil {
		return "", core.Anonymous, err
	}
	return token, core.SessionForVilla(villa), nil
}

// Session converts claims into the session passed to reports and writes.
// When the villa is still on the roster of snap its current board flag
// wins over the one in the token.
func (c *Claims) Session(snap *snapshot.Snapshot) core.Session {
	s := core.Session{Email: c.Email, VillaID: c.VillaID, IsBoardMember: c.Board}
	if v, ok := snap.Villa(c.VillaID); ok {
		s.IsBoardMember = v.IsBoardMember
	}
	return s
}
