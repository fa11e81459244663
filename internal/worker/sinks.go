package worker

import (
	"context"

	"familybudget/internal/core"
	applog "familybudget/internal/log"
)

// AlertSink receives the alerts a session raises.
type AlertSink interface {
	Deliver(ctx context.Context, a core.Alert) error
}

// AlertPublisher is implemented by amqp.Client.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, a core.Alert) error
}

// PublisherSink forwards alerts to the broker so other family members'
// sessions and tools can show them.
type PublisherSink struct {
	publisher AlertPublisher
}

func NewPublisherSink(p AlertPublisher) *PublisherSink {
	return &PublisherSink{publisher: p}
}

func (s *PublisherSink) Deliver(ctx context.Context, a core.Alert) error {
	return s.publisher.PublishAlert(ctx, a)
}

// LogSink writes alerts to the log. Without a logger it uses the one
// carried by the context.
type LogSink struct {
	logger *applog.Logger
}

func NewLogSink(logger *applog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, a core.Alert) error {
	logger := s.logger
	if logger == nil {
		logger = applog.FromContext(ctx).WithComponent(applog.ComponentNotification)
	}
	logger.WarnContext(ctx, a.Message,
		applog.NewFields().
			WithFamily(a.FamilyID).
			WithAlert(string(a.Kind), a.Key).
			ToSlice()...)
	return nil
}

// SinkFunc adapts a function to AlertSink.
type SinkFunc func(ctx context.Context, a core.Alert) error

func (f SinkFunc) Deliver(ctx context.Context, a core.Alert) error {
	return f(ctx, a)
}
