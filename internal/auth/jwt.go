package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultIssuer = "navgrid"

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrWeakSecret   = errors.New("auth: secret key must be at least 32 bytes")
)

// Claims represents JWT claims of an API client
type Claims struct {
	Client  string `json:"client"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 tokens for the debug API
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer from a base64 secret (at least 32 bytes decoded)
func NewTokenIssuer(secretBase64 string, ttl time.Duration) (*TokenIssuer, error) {
	decoded, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, err
	}
	if len(decoded) < 32 {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: decoded, issuer: defaultIssuer, ttl: ttl}, nil
}

// Generate creates a signed token for the given client
func (ti *TokenIssuer) Generate(client string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		Client:  client,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
			Subject:   client,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate checks token validity and returns its claims
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithIssuer(ti.issuer))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecureSecret generates a new base64 secret key
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
