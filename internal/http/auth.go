package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/REMSofram/plateforme-coach/internal/application"
)

// TokenAuthority signs and verifies HS256 bearer tokens whose subject is the
// coach id.
type TokenAuthority struct {
	secret []byte
	now    func() time.Time
}

// NewTokenAuthority builds an authority over the shared secret. A nil now
// uses the wall clock.
func NewTokenAuthority(secret string, now func() time.Time) *TokenAuthority {
	if now == nil {
		now = time.Now
	}
	return &TokenAuthority{secret: []byte(secret), now: now}
}

// Issue mints a token for coachID valid for ttl.
func (a *TokenAuthority) Issue(coachID string, ttl time.Duration) (string, error) {
	coachID = strings.TrimSpace(coachID)
	if coachID == "" {
		return "", errors.New("coach id is required")
	}
	if len(a.secret) == 0 {
		return "", errors.New("token secret is empty")
	}
	issuedAt := a.now()
	claims := jwt.MapClaims{
		"sub": coachID,
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses token and returns the coach it was issued to. Every failure
// matches application.ErrUnauthorized.
func (a *TokenAuthority) Verify(token string) (application.Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", application.ErrUnauthorized, err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return application.Principal{}, fmt.Errorf("%w: token has no subject", application.ErrUnauthorized)
	}
	return application.Principal{CoachID: subject}, nil
}
