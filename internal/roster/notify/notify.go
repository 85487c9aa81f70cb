// Package notify delivers invitation and password reset links to members.
// Delivery is best effort; callers log failures and move on.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

// Message is everything a template needs to render one link.
type Message struct {
	To           string
	Name         string
	Organization string
	Link         string
	ExpiresAt    time.Time
}

type Notifier interface {
	SendInvitation(ctx context.Context, msg Message) error
	SendPasswordReset(ctx context.Context, msg Message) error
}

// LogNotifier writes links to the request logger instead of sending mail.
// Only meant for local development.
type LogNotifier struct{}

func (LogNotifier) SendInvitation(ctx context.Context, msg Message) error {
	logMessage(ctx, "invitation", msg)
	return nil
}

func (LogNotifier) SendPasswordReset(ctx context.Context, msg Message) error {
	logMessage(ctx, "password_reset", msg)
	return nil
}

func logMessage(ctx context.Context, kind string, msg Message) {
	slogx.FromContext(ctx).Info("notification not sent, smtp disabled",
		slog.String("kind", kind),
		slog.String("to", msg.To),
		slog.String("link", msg.Link),
		slog.Time("expires_at", msg.ExpiresAt),
	)
}
