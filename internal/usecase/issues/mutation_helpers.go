package issues

import (
	"context"
	"errors"
	"log/slog"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

// succeed runs the post-success steps of a mutation: invalidate the issues
// prefix plus any extra keys, notify the user and publish the domain event.
// None of these steps can fail the mutation.
func (s *Service) succeed(ctx context.Context, userID string, message string, event string, payload any, extra ...query.Key) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "issues.mutation"), slog.String("event", event))

	for _, prefix := range append([]query.Key{query.IssuesPrefix}, extra...) {
		removed, err := s.queries.Invalidate(ctx, prefix)
		if err != nil {
			logging.Warn(logCtx, "invalidate queries failed", slog.String("prefix", prefix.String()), slog.Any("err", errs.Loggable(err)))
			continue
		}
		logging.Debug(logCtx, "queries invalidated", slog.String("prefix", prefix.String()), slog.Int("removed", removed))
	}

	s.notify(ctx, userID, ports.NotificationSuccess, message)

	if err := s.events.Publish(ctx, event, payload); err != nil {
		logging.Warn(logCtx, "publish domain event failed", slog.Any("err", errs.Loggable(err)))
	}
}

// fail reports err to the user with the message the store produced and
// returns it unchanged. Nothing is invalidated.
func (s *Service) fail(ctx context.Context, userID string, err error) error {
	s.notify(ctx, userID, ports.NotificationFailure, errs.Message(err))
	return err
}

// Reject reports a mutation refused before it reached the store, such as an
// unknown enum value or a policy check, exactly like a store failure.
func (s *Service) Reject(ctx context.Context, viewer Viewer, err error) error {
	if err == nil {
		return nil
	}
	return s.fail(ctx, viewer.UserID, err)
}

// notify addresses the acting user only; anonymous callers get no toast.
func (s *Service) notify(ctx context.Context, userID string, kind ports.NotificationKind, message string) {
	if userID == "" {
		return
	}
	s.notifier.Notify(ctx, ports.Notification{UserID: userID, Kind: kind, Message: message})
}
