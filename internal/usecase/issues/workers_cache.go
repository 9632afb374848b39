package issues

import (
	"context"
	"log/slog"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

// WorkersInvalidator drops the cached worker list whenever a role row is
// written, so the assignment picker sees new and promoted workers.
type WorkersInvalidator struct {
	queries *query.Client
}

var _ ports.RoleListener = (*WorkersInvalidator)(nil)

func NewWorkersInvalidator(queries *query.Client) *WorkersInvalidator {
	return &WorkersInvalidator{queries: queries}
}

func (w *WorkersInvalidator) RoleChanged(ctx context.Context, userID string, role identity.Role) {
	if w == nil || w.queries == nil {
		return
	}
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "issues.workers"),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	removed, err := w.queries.Invalidate(ctx, query.WorkersKey)
	if err != nil {
		logging.Warn(logCtx, "invalidate workers failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	logging.Debug(logCtx, "workers invalidated", slog.Int("removed", removed))
}

// RoleChanged lets callers that write roles directly keep the worker list fresh.
func (s *Service) RoleChanged(ctx context.Context, userID string, role identity.Role) {
	NewWorkersInvalidator(s.queries).RoleChanged(ctx, userID, role)
}
