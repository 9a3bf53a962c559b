package ports

import (
	"context"

	"github.com/showsec/security-demo/internal/core/domain"
)

// AuditRepository persists the login audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.AuthEvent, error)
}

// AuditRecorder accepts auth events for asynchronous persistence.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
