package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups the Authentication Service's PostgreSQL repositories.
type Repositories struct {
	Users       *UserRepository
	Sessions    *SessionRepository
	Audit       *AuditRepository
	ResetTokens *ResetTokenRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Audit:       NewAuditRepository(pool),
		ResetTokens: NewResetTokenRepository(pool),
	}
}
