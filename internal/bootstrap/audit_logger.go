package bootstrap

import "context"

// AuditLog is a server lifecycle audit entry, distinct from the domain audit
// trail kept by internal/audit.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
