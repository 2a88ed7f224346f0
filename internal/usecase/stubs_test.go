package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/friendy21/workspace-auth/internal/core/domain"
	"github.com/friendy21/workspace-auth/internal/infra/config"
	"github.com/friendy21/workspace-auth/internal/infra/security"
	"github.com/friendy21/workspace-auth/internal/repository"
)

// fastArgon keeps hashing cheap in tests while remaining a real argon2id hash.
var fastArgon = security.Argon2Config{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var testSessionSettings = config.SessionSettings{
	TTL:           24 * time.Hour,
	RememberMeTTL: 30 * 24 * time.Hour,
	ResetTokenTTL: time.Hour,
	TokenByteSize: 48,
}

type memUserRepo struct {
	mu              sync.Mutex
	users           map[string]*domain.User
	byEmail         map[string]string
	lockTransitions int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *memUserRepo) add(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := user
	r.users[user.ID] = &copied
	r.byEmail[domain.NormalizeEmail(user.Email)] = user.ID
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[domain.NormalizeEmail(email)]; ok {
		copied := *r.users[id]
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) RecordLoginFailure(_ context.Context, userID string, at time.Time, lockedUntil time.Time) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}

	next := user.FailedLoginAttempts + 1
	if next >= domain.LockoutThreshold {
		user.FailedLoginAttempts = 0
		locked := lockedUntil
		user.LockedUntil = &locked
		r.lockTransitions++
		return domain.LockoutThreshold, &locked, nil
	}

	user.FailedLoginAttempts = next
	return next, user.LockedUntil, nil
}

func (r *memUserRepo) ClearLoginFailures(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	stamp := at
	user.LastLogin = &stamp
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = changedAt
	return nil
}

func (r *memUserRepo) SetActive(_ context.Context, userID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

func (r *memUserRepo) SetVerified(_ context.Context, userID string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsVerified = verified
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memSessionRepo) GetBySessionTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	return r.findBy(func(s *domain.Session) bool { return s.SessionTokenHash == hash })
}

func (r *memSessionRepo) GetByRefreshTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	return r.findBy(func(s *domain.Session) bool { return s.RefreshTokenHash == hash })
}

func (r *memSessionRepo) findBy(match func(*domain.Session) bool) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if match(session) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSessionRepo) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.Status == domain.SessionStatusActive {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (r *memSessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	list, err := r.ListActiveByUser(ctx, userID)
	return len(list), err
}

func (r *memSessionRepo) RotateTokens(_ context.Context, sessionID, oldRefreshHash, newSessionHash, newRefreshHash string, expiresAt, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.RefreshTokenHash != oldRefreshHash || session.Status != domain.SessionStatusActive {
		return repository.ErrNotFound
	}
	session.SessionTokenHash = newSessionHash
	session.RefreshTokenHash = newRefreshHash
	session.ExpiresAt = expiresAt
	session.LastAccessed = at
	return nil
}

func (r *memSessionRepo) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.Status = domain.SessionStatusRevoked
	return nil
}

func (r *memSessionRepo) RevokeAllForUser(_ context.Context, userID string, exceptSessionID *string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID != userID || session.Status != domain.SessionStatusActive {
			continue
		}
		if exceptSessionID != nil && session.ID == *exceptSessionID {
			continue
		}
		session.Status = domain.SessionStatusRevoked
		count++
	}
	return count, nil
}

func (r *memSessionRepo) Touch(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		session.LastAccessed = at
	}
	return nil
}

func (r *memSessionRepo) MarkExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.Status == domain.SessionStatusActive && !session.ExpiresAt.After(before) {
			session.Status = domain.SessionStatusExpired
			count++
		}
	}
	return count, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *memAuditRepo) Append(_ context.Context, entry domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) ListByUser(_ context.Context, userID string, since time.Time, limit int) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLog
	for _, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID && !entry.CreatedAt.Before(since) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memAuditRepo) CountByUserAction(_ context.Context, userID string, action domain.AuditAction, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID && entry.Action == action && !entry.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memAuditRepo) countAction(action domain.AuditAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.Action == action {
			count++
		}
	}
	return count
}

type memResetTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.PasswordResetToken
}

func newMemResetTokenRepo() *memResetTokenRepo {
	return &memResetTokenRepo{tokens: make(map[string]*domain.PasswordResetToken)}
}

func (r *memResetTokenRepo) Create(_ context.Context, token domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *memResetTokenRepo) GetByTokenHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memResetTokenRepo) MarkUsed(_ context.Context, tokenID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenID]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	stamp := at
	token.UsedAt = &stamp
	return nil
}

func (r *memResetTokenRepo) InvalidateForUser(_ context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, token := range r.tokens {
		if token.UserID == userID && token.UsedAt == nil {
			stamp := at
			token.UsedAt = &stamp
			count++
		}
	}
	return count, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	succeeded []domain.LoginSucceededEvent
	failed    []domain.LoginFailedEvent
	revoked   []domain.SessionRevokedEvent
	passwords []domain.PasswordChangedEvent
	alerts    []domain.SecurityAlertEvent
}

func (p *recordingPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeeded = append(p.succeeded, event)
	return nil
}

func (p *recordingPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwords = append(p.passwords, event)
	return nil
}

func (p *recordingPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, event)
	return nil
}

type memActivityStore struct {
	mu      sync.Mutex
	byIP    map[string]map[string]struct{}
	byEmail map[string]map[string]struct{}
}

func newMemActivityStore() *memActivityStore {
	return &memActivityStore{
		byIP:    make(map[string]map[string]struct{}),
		byEmail: make(map[string]map[string]struct{}),
	}
}

func (s *memActivityStore) RecordAccountIP(_ context.Context, accountKey, ip string, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byIP[accountKey]
	if !ok {
		set = make(map[string]struct{})
		s.byIP[accountKey] = set
	}
	set[ip] = struct{}{}
	return len(set), nil
}

func (s *memActivityStore) RecordUnknownEmail(_ context.Context, ip, email string, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byEmail[ip]
	if !ok {
		set = make(map[string]struct{})
		s.byEmail[ip] = set
	}
	set[email] = struct{}{}
	return len(set), nil
}

type stubOrgDirectory struct {
	contexts map[string]domain.OrgContext
	err      error
}

func (d *stubOrgDirectory) FetchOrgContext(_ context.Context, email string) (*domain.OrgContext, error) {
	if d.err != nil {
		return nil, d.err
	}
	if ctx, ok := d.contexts[domain.NormalizeEmail(email)]; ok {
		copied := ctx
		return &copied, nil
	}
	return nil, errors.New("no stub context configured")
}

// testClock is a mutable clock shared across the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	users     *memUserRepo
	sessions  *memSessionRepo
	audit     *memAuditRepo
	publisher *recordingPublisher
	activity  *memActivityStore
	orgs      *stubOrgDirectory
	hasher    *security.PasswordHasher
	issuer    *security.TokenIssuer
	clock     *testClock
	svc       *AuthService
	sessSvc   *SessionService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	audit := &memAuditRepo{}
	publisher := &recordingPublisher{}
	activity := newMemActivityStore()
	orgs := &stubOrgDirectory{contexts: make(map[string]domain.OrgContext)}
	hasher := security.NewPasswordHasher(fastArgon)

	issuer, err := security.NewTokenIssuer("test-signing-secret", "auth-service", time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	issuer = issuer.WithClock(clock.Now)

	log := zap.NewNop()
	monitor := NewSecurityMonitor(activity, audit, publisher, log).WithClock(clock.Now)
	sessSvc := NewSessionService(sessions, users, audit, publisher, issuer, testSessionSettings, log).WithClock(clock.Now)

	svc, err := NewAuthService(users, audit, publisher, orgs, sessSvc, monitor, hasher, issuer, log)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	svc = svc.WithClock(clock.Now)

	return &authFixture{
		users:     users,
		sessions:  sessions,
		audit:     audit,
		publisher: publisher,
		activity:  activity,
		orgs:      orgs,
		hasher:    hasher,
		issuer:    issuer,
		clock:     clock,
		svc:       svc,
		sessSvc:   sessSvc,
	}
}

func (f *authFixture) addUser(t *testing.T, email, password string) domain.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	now := f.clock.Now()
	user := domain.User{
		ID:                "user-" + email,
		Email:             email,
		PasswordHash:      hash,
		IsActive:          true,
		IsVerified:        true,
		PasswordChangedAt: now.Add(-24 * time.Hour),
		CreatedAt:         now.Add(-48 * time.Hour),
		UpdatedAt:         now.Add(-48 * time.Hour),
	}
	f.users.add(user)

	f.orgs.contexts[domain.NormalizeEmail(email)] = domain.OrgContext{
		UserID: "org-user-" + email,
		OrgID:  "org-1",
		Role:   domain.OrgRoleMember,
	}

	return user
}

func loginInput(email, password, ip string) LoginInput {
	return LoginInput{
		Email:    email,
		Password: password,
		IP:       ip,
		Device:   domain.DeviceInfo{Type: domain.DeviceTypeWeb},
	}
}
