package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/svcauth"
)

type recordingAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *recordingAuditRepo) Append(_ context.Context, entry domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAuditRepo) ListByUser(context.Context, string, time.Time, int) ([]domain.AuditLog, error) {
	return nil, nil
}

func (r *recordingAuditRepo) CountByUserAction(context.Context, string, domain.AuditAction, time.Time) (int, error) {
	return 0, nil
}

func (r *recordingAuditRepo) last(t *testing.T) domain.AuditLog {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatalf("no audit entries recorded")
	}
	return r.entries[len(r.entries)-1]
}

func serviceAuthEngine(verifier *svcauth.Verifier, audit *recordingAuditRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/internal/users/:email/", RequireServiceAuth(verifier, audit, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerServiceID(c)})
	})
	return engine
}

func TestRequireServiceAuthAcceptsSignedRequest(t *testing.T) {
	verifier := svcauth.NewVerifier("token", "secret")
	audit := &recordingAuditRepo{}
	engine := serviceAuthEngine(verifier, audit)

	req := httptest.NewRequest(http.MethodGet, "/internal/users/alice@example.com/", nil)
	svcauth.NewSigner("auth-service", "token", "secret").Apply(req, "")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "auth-service") {
		t.Fatalf("caller id not propagated: %s", rec.Body.String())
	}
	if entry := audit.last(t); entry.Action != domain.AuditServiceAuthAccepted {
		t.Fatalf("audit action = %q, want accepted", entry.Action)
	}
}

func TestRequireServiceAuthRejectsUnsignedRequest(t *testing.T) {
	verifier := svcauth.NewVerifier("token", "secret")
	audit := &recordingAuditRepo{}
	engine := serviceAuthEngine(verifier, audit)

	req := httptest.NewRequest(http.MethodGet, "/internal/users/alice@example.com/", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "service_auth_failed") {
		t.Fatalf("body missing error code: %s", rec.Body.String())
	}
	entry := audit.last(t)
	if entry.Action != domain.AuditServiceAuthRejected {
		t.Fatalf("audit action = %q, want rejected", entry.Action)
	}
	if entry.Details["reason"] != "missing_headers" {
		t.Fatalf("audit reason = %v, want missing_headers", entry.Details["reason"])
	}
}

func TestRequireServiceAuthRejectsTamperedSignature(t *testing.T) {
	verifier := svcauth.NewVerifier("token", "secret")
	audit := &recordingAuditRepo{}
	engine := serviceAuthEngine(verifier, audit)

	req := httptest.NewRequest(http.MethodGet, "/internal/users/alice@example.com/", nil)
	svcauth.NewSigner("auth-service", "token", "wrong-secret").Apply(req, "")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if entry := audit.last(t); entry.Details["reason"] != "bad_signature" {
		t.Fatalf("audit reason = %v, want bad_signature", entry.Details["reason"])
	}
}
