// Package svcauth implements the mutual HMAC authentication protocol used for
// every inter-service HTTP call. Both services share one secret; a request
// proves possession of it by signing "METHOD|PATH|BODY|SERVICE_ID|TIMESTAMP"
// with HMAC-SHA256 and carrying the hex digest alongside a static service
// token, the caller's id, and a unix timestamp bounded to a replay window.
package svcauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Header names carried on every inter-service request.
const (
	HeaderServiceToken = "X-Service-Token"
	HeaderServiceID    = "X-Service-ID"
	HeaderTimestamp    = "X-Timestamp"
	HeaderSignature    = "X-Signature"
)

// ReplayWindow bounds how far a request timestamp may drift from the
// verifier's clock, in either direction.
const ReplayWindow = 300 * time.Second

var (
	// ErrMissingHeaders indicates one or more protocol headers were absent.
	ErrMissingHeaders = errors.New("svcauth: missing authentication headers")
	// ErrBadToken indicates the static service token did not match.
	ErrBadToken = errors.New("svcauth: invalid service token")
	// ErrBadTimestamp indicates a non-numeric or out-of-window timestamp.
	ErrBadTimestamp = errors.New("svcauth: timestamp outside replay window")
	// ErrBadSignature indicates the recomputed signature did not match.
	ErrBadSignature = errors.New("svcauth: signature mismatch")
)

// Sign computes the hex-encoded HMAC-SHA256 signature over the canonical
// payload for the given request attributes.
func Sign(secret, method, path, body, serviceID, timestamp string) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s", method, path, body, serviceID, timestamp)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Signer produces protocol headers for outbound requests.
type Signer struct {
	serviceID string
	token     string
	secret    string
	now       func() time.Time
}

// NewSigner constructs a signer identifying the calling service.
func NewSigner(serviceID, token, secret string) *Signer {
	return &Signer{
		serviceID: serviceID,
		token:     token,
		secret:    secret,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	if now != nil {
		s.now = now
	}
	return s
}

// Apply signs the request and sets the four protocol headers on it. The body
// must be the exact bytes the request will carry.
func (s *Signer) Apply(req *http.Request, body string) {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature := Sign(s.secret, req.Method, req.URL.Path, body, s.serviceID, timestamp)

	req.Header.Set(HeaderServiceToken, s.token)
	req.Header.Set(HeaderServiceID, s.serviceID)
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, signature)
}

// Attempt captures the request attributes a verifier evaluates.
type Attempt struct {
	Method    string
	Path      string
	Body      string
	Token     string
	ServiceID string
	Timestamp string
	Signature string
}

// Verifier checks inbound protocol headers against the shared secret.
type Verifier struct {
	token  string
	secret string
	window time.Duration
	now    func() time.Time
}

// NewVerifier constructs a verifier for the configured token and secret.
func NewVerifier(token, secret string) *Verifier {
	return &Verifier{
		token:  token,
		secret: secret,
		window: ReplayWindow,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// WithWindow overrides the replay window. Zero or negative keeps the default.
func (v *Verifier) WithWindow(window time.Duration) *Verifier {
	if window > 0 {
		v.window = window
	}
	return v
}

// Verify evaluates the attempt and returns nil when the request is authentic.
// Checks run in a fixed order: header presence, token match, timestamp
// freshness, then signature. Token and signature comparisons are constant
// time. Verify never panics; failure is always one of the sentinel errors.
func (v *Verifier) Verify(attempt Attempt) error {
	if attempt.Token == "" || attempt.ServiceID == "" || attempt.Timestamp == "" || attempt.Signature == "" {
		return ErrMissingHeaders
	}

	if subtle.ConstantTimeCompare([]byte(attempt.Token), []byte(v.token)) != 1 {
		return ErrBadToken
	}

	ts, err := strconv.ParseInt(attempt.Timestamp, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	drift := v.now().Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > v.window {
		return ErrBadTimestamp
	}

	expected := Sign(v.secret, attempt.Method, attempt.Path, attempt.Body, attempt.ServiceID, attempt.Timestamp)
	if subtle.ConstantTimeCompare([]byte(attempt.Signature), []byte(expected)) != 1 {
		return ErrBadSignature
	}

	return nil
}

// AttemptFromRequest extracts the protocol attributes from an HTTP request.
// The caller supplies the raw body since the request stream may already have
// been consumed by the HTTP framework.
func AttemptFromRequest(req *http.Request, body string) Attempt {
	return Attempt{
		Method:    req.Method,
		Path:      req.URL.Path,
		Body:      body,
		Token:     req.Header.Get(HeaderServiceToken),
		ServiceID: req.Header.Get(HeaderServiceID),
		Timestamp: req.Header.Get(HeaderTimestamp),
		Signature: req.Header.Get(HeaderSignature),
	}
}
