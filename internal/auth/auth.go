// Package auth verifies the single static operator credential and issues
// short-lived bearer tokens for it.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/infraguard/preflight/internal/config"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims is the JWT payload for the one operator subject this service knows.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator validates the configured static credential and signs/parses
// bearer tokens for it.
type Authenticator struct {
	username     string
	passwordHash string
	secret       []byte
	tokenTTL     time.Duration
}

func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		secret:       []byte(cfg.SecretKey),
		tokenTTL:     cfg.TokenTTL,
	}
}

// Verify checks username/password against the configured credential. Per
// spec.md §4.6's timing discipline, the bcrypt comparison runs on every
// call regardless of whether the username matches, and the username
// comparison itself uses a constant-time primitive — there is no early
// return on username mismatch.
func (a *Authenticator) Verify(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	hashErr := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password))

	if !usernameMatch || hashErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a bearer token for the operator subject.
func (a *Authenticator) IssueToken() (token string, expiresAt time.Time, err error) {
	expiresAt = time.Now().Add(a.tokenTTL)
	claims := &Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   a.username,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashPassword is a setup-time helper for operators generating
// AUTH_PASSWORD's bcrypt hash; it is not used on the request path.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
