package port

import (
	"context"
	"time"

	"github.com/friendy21/workspace-auth/internal/core/domain"
)

// AuditRepository appends security events to the audit trail. Rows are
// immutable once written; there are no update operations.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditLog) error
	ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]domain.AuditLog, error)
	CountByUserAction(ctx context.Context, userID string, action domain.AuditAction, since time.Time) (int, error)
}
