package notify

import (
	"context"

	"go.uber.org/zap"

	"msk-care-coordination/internal/ports/notify"
)

// LogNotifier logs notifications instead of delivering them. The real
// email/SMS gateway plugs in behind the same port; the core must not care.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, event string, payload map[string]string) {
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	for k, v := range payload {
		fields = append(fields, zap.String(k, v))
	}
	n.log.Info("notification", fields...)
}

var _ notify.Notifier = (*LogNotifier)(nil)
