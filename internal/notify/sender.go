// Package notify delivers chat notifications to users.
package notify

import (
	"context"
	"log"
	"os"
	"time"

	"example.com/pushups/internal/events"
)

// Sender hands a notification to the delivery channel.
type Sender interface {
	Send(ctx context.Context, n events.Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n events.Notification) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, n events.Notification) error {
	return f(ctx, n)
}

// LogSender writes notifications to a logger instead of delivering them.
type LogSender struct {
	Logger *log.Logger
}

// NewLogSender constructs a LogSender writing to stdout.
func NewLogSender() LogSender {
	return LogSender{Logger: log.New(os.Stdout, "notify ", log.LstdFlags|log.LUTC)}
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, n events.Notification) error {
	s.Logger.Printf("user=%d kind=%s text=%q", n.UserID, n.Kind, n.Text)
	return nil
}

// WithTimeout bounds every Send of next by d and records the outcome.
func WithTimeout(next Sender, d time.Duration) Sender {
	return SenderFunc(func(ctx context.Context, n events.Notification) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		err := next.Send(ctx, n)
		observeSend(n.Kind, err)
		return err
	})
}
