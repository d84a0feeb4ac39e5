// Package auth guards the admin surface with a bcrypt password and short-lived JWTs.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const subject = "admin"

var (
	ErrAdminDisabled      = errors.New("admin access not configured")
	ErrInvalidCredentials = errors.New("invalid admin password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Authenticator checks the admin password and issues/validates tokens.
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator accepts either a bcrypt hash or a plain password (hashed here).
// With neither, every login fails with ErrAdminDisabled. An empty secret gets a
// random one, so tokens do not survive a restart.
func NewAuthenticator(password, passwordHash, secret string, ttl time.Duration) (*Authenticator, error) {
	a := &Authenticator{ttl: ttl, now: time.Now}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}

	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.hash = hashed
	}

	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		a.secret = buf
	} else {
		a.secret = []byte(secret)
	}
	return a, nil
}

// WithClock is test-only.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Enabled reports whether an admin password is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.hash) > 0
}

// Login exchanges the admin password for a signed token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature, expiry and subject.
func (a *Authenticator) Verify(tokenStr string) error {
	if tokenStr == "" {
		return ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithSubject(subject),
	)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// HashPassword is used by operators to produce admin.password_hash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
