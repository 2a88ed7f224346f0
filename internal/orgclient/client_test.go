package orgclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/svcauth"
)

const (
	testServiceToken  = "shared-service-token"
	testServiceSecret = "shared-service-secret"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	signer := svcauth.NewSigner("auth-service", testServiceToken, testServiceSecret)
	client := New(server.URL, 2*time.Second, signer, zap.NewNop())

	return client, server
}

func TestFetchOrgContextSuccess(t *testing.T) {
	verifier := svcauth.NewVerifier(testServiceToken, testServiceSecret)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The server side enforces the HMAC protocol the signer speaks.
		if err := verifier.Verify(svcauth.AttemptFromRequest(r, "")); err != nil {
			t.Errorf("inbound request failed service auth: %v", err)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if want := "/internal/users/alice@example.com/"; r.URL.Path != want {
			t.Errorf("path = %q, want %q", r.URL.Path, want)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"user_id": "org-user-1",
			"org_id":  "org-1",
			"role":    "admin",
		})
	})

	org, err := client.FetchOrgContext(context.Background(), "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if org.UserID != "org-user-1" || org.OrgID != "org-1" || org.Role != domain.OrgRoleAdmin {
		t.Fatalf("unexpected context %+v", org)
	}
}

func TestFetchOrgContextNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.FetchOrgContext(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestFetchOrgContextServiceAuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusUnauthorized} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		if _, err := client.FetchOrgContext(context.Background(), "alice@example.com"); !errors.Is(err, ErrServiceAuth) {
			t.Fatalf("status %d: err = %v, want ErrServiceAuth", status, err)
		}
	}
}

func TestFetchOrgContextUnexpectedStatusIsInternal(t *testing.T) {
	// The service answered, so this is not an availability problem.
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.FetchOrgContext(context.Background(), "alice@example.com")
		if !errors.Is(err, ErrInternal) {
			t.Fatalf("status %d: err = %v, want ErrInternal", status, err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Fatalf("status %d: classified as unavailable", status)
		}
	}
}

func TestFetchOrgContextTransportFailureIsUnavailable(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	if _, err := client.FetchOrgContext(context.Background(), "alice@example.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFetchOrgContextTimeoutIsUnavailable(t *testing.T) {
	block := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(server.Close)
	// Cleanups run last-in-first-out: unblock the handler before server.Close
	// waits for outstanding requests, or Close deadlocks.
	t.Cleanup(func() { close(block) })

	signer := svcauth.NewSigner("auth-service", testServiceToken, testServiceSecret)
	client := New(server.URL, 50*time.Millisecond, signer, zap.NewNop())

	if _, err := client.FetchOrgContext(context.Background(), "alice@example.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFetchOrgContextRejectsIncompletePayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"role": "member"})
	})

	if _, err := client.FetchOrgContext(context.Background(), "alice@example.com"); err == nil {
		t.Fatalf("incomplete payload accepted")
	}
}
