package notify

import (
	"context"
	"log/slog"
	"sync"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/ports"
)

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

func (LogNotifier) Notify(ctx context.Context, n ports.Notification) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "notify"))
	attrs := []slog.Attr{
		slog.String("kind", string(n.Kind)),
		slog.String("user_id", n.UserID),
	}
	if n.Kind == ports.NotificationFailure {
		logging.Warn(logCtx, n.Message, attrs...)
		return
	}
	logging.Info(logCtx, n.Message, attrs...)
}

// Fanout delivers every notification to each notifier in order.
type Fanout []ports.Notifier

func (f Fanout) Notify(ctx context.Context, n ports.Notification) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Recorder keeps notifications in memory; the CLI prints them after a command.
type Recorder struct {
	mu    sync.Mutex
	items []ports.Notification
}

func (r *Recorder) Notify(_ context.Context, n ports.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) Drain() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items
	r.items = nil
	return items
}
