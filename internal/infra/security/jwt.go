package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

var (
	// ErrTokenExpired indicates the access token's exp claim has elapsed.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenInvalid indicates the token is malformed, carries the wrong
	// issuer, or failed signature verification.
	ErrTokenInvalid = errors.New("jwt: token invalid")
)

const defaultAccessTokenTTL = time.Hour

// AccessTokenClaims carries identity and organization context bound to a
// server-side session. PasswordEpoch captures password_changed_at at issuance
// so tokens minted before a password change can be rejected.
type AccessTokenClaims struct {
	SessionID     string `json:"sid"`
	Email         string `json:"email"`
	OrgID         string `json:"org_id"`
	Role          string `json:"role"`
	PasswordEpoch int64  `json:"pwd_changed_at"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 access tokens.
//
// Verify checks signature, expiry, and issuer only. Whether the referenced
// session is still active and whether PasswordEpoch still matches the user are
// the middleware's cross-checks, performed on every authenticated request.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs an issuer for the given symmetric signing key.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for testing.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		i.now = now
	}
	return i
}

// TTL returns the access token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Mint signs an access token binding the user, session, and org context.
// The token lives one hour regardless of the session's own expiry; the
// short-lived access token against the long-lived session/refresh pair is the
// core separation.
func (i *TokenIssuer) Mint(user domain.User, session domain.Session, org domain.OrgContext) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}
	if session.ID == "" {
		return "", fmt.Errorf("jwt: session id is required")
	}

	now := i.now().UTC()
	claims := AccessTokenClaims{
		SessionID:     session.ID,
		Email:         user.Email,
		OrgID:         org.OrgID,
		Role:          string(org.Role),
		PasswordEpoch: user.PasswordEpoch(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates the token, returning its claims.
func (i *TokenIssuer) Verify(raw string) (*AccessTokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
