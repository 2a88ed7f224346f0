package svcauth

import (
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

const (
	testToken  = "auth-service-token"
	testSecret = "shared-service-secret-key"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func validAttempt(now time.Time) Attempt {
	ts := strconv.FormatInt(now.Unix(), 10)
	return Attempt{
		Method:    "GET",
		Path:      "/internal/users/alice@example.com/",
		Body:      "",
		Token:     testToken,
		ServiceID: "auth-service",
		Timestamp: ts,
		Signature: Sign(testSecret, "GET", "/internal/users/alice@example.com/", "", "auth-service", ts),
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	if err := v.Verify(validAttempt(now)); err != nil {
		t.Fatalf("expected valid attempt to verify, got %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	base := validAttempt(now)
	mutations := []func(a *Attempt){
		func(a *Attempt) { a.Token = "" },
		func(a *Attempt) { a.ServiceID = "" },
		func(a *Attempt) { a.Timestamp = "" },
		func(a *Attempt) { a.Signature = "" },
	}

	for i, mutate := range mutations {
		attempt := base
		mutate(&attempt)
		if err := v.Verify(attempt); !errors.Is(err, ErrMissingHeaders) {
			t.Fatalf("mutation %d: expected ErrMissingHeaders, got %v", i, err)
		}
	}
}

func TestVerifyRejectsWrongToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	attempt := validAttempt(now)
	attempt.Token = "some-other-token"

	if err := v.Verify(attempt); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestVerifyRejectsSingleByteTamper(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	attempt := validAttempt(now)
	attempt.Body = attempt.Body + "x"

	if err := v.Verify(attempt); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for altered body, got %v", err)
	}

	attempt = validAttempt(now)
	attempt.Path = strings.Replace(attempt.Path, "alice", "alicf", 1)
	if err := v.Verify(attempt); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for altered path, got %v", err)
	}
}

func TestVerifyRejectsTimestampOutsideWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	for _, skew := range []time.Duration{301 * time.Second, -301 * time.Second} {
		ts := strconv.FormatInt(now.Add(skew).Unix(), 10)
		attempt := Attempt{
			Method:    "GET",
			Path:      "/internal/users/alice@example.com/",
			Token:     testToken,
			ServiceID: "auth-service",
			Timestamp: ts,
			Signature: Sign(testSecret, "GET", "/internal/users/alice@example.com/", "", "auth-service", ts),
		}
		if err := v.Verify(attempt); !errors.Is(err, ErrBadTimestamp) {
			t.Fatalf("skew %v: expected ErrBadTimestamp, got %v", skew, err)
		}
	}

	// Exactly at the boundary is still accepted.
	ts := strconv.FormatInt(now.Add(-300*time.Second).Unix(), 10)
	attempt := Attempt{
		Method:    "GET",
		Path:      "/internal/users/alice@example.com/",
		Token:     testToken,
		ServiceID: "auth-service",
		Timestamp: ts,
		Signature: Sign(testSecret, "GET", "/internal/users/alice@example.com/", "", "auth-service", ts),
	}
	if err := v.Verify(attempt); err != nil {
		t.Fatalf("expected boundary timestamp to verify, got %v", err)
	}
}

func TestVerifyRejectsNonNumericTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	attempt := validAttempt(now)
	attempt.Timestamp = "yesterday"

	if err := v.Verify(attempt); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}

func TestSignerProducesVerifiableHeaders(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer := NewSigner("auth-service", testToken, testSecret).WithClock(fixedClock(now))
	verifier := NewVerifier(testToken, testSecret).WithClock(fixedClock(now))

	req := httptest.NewRequest("GET", "http://orgsvc.internal/internal/users/bob@example.com/", nil)
	signer.Apply(req, "")

	if got := req.Header.Get(HeaderServiceID); got != "auth-service" {
		t.Fatalf("unexpected service id header %q", got)
	}

	if err := verifier.Verify(AttemptFromRequest(req, "")); err != nil {
		t.Fatalf("signed request failed verification: %v", err)
	}
}
