package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkguard/internal/messaging"
	"go.uber.org/zap"
)

// LogSink records consumed events as structured log entries.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) LinkCreated(_ context.Context, event *LinkCreatedEvent) error {
	s.logger.Info("link created",
		zap.Int64("id", event.ID),
		zap.String("code", event.Code),
		zap.String("realUrl", event.RealURL),
		zap.Int64("ownerId", event.OwnerID),
		zap.String("verdict", event.Verdict),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

func (s *LogSink) LinkVisited(_ context.Context, event *LinkVisitedEvent) error {
	s.logger.Info("link visited",
		zap.String("code", event.Code),
		zap.Int64("clicks", event.Clicks),
		zap.Time("visitedAt", event.VisitedAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

func (s *LogSink) LinkDeleted(_ context.Context, event *LinkDeletedEvent) error {
	s.logger.Info("link deleted",
		zap.Int64("id", event.ID),
		zap.String("code", event.Code),
		zap.Bool("soft", event.Soft),
		zap.Int64("deletedBy", event.DeletedBy),
	)

	return nil
}

// URLRejected logs at warn level so rejections stand out in the consumer output.
func (s *LogSink) URLRejected(_ context.Context, event *URLRejectedEvent) error {
	s.logger.Warn("url rejected",
		zap.String("url", event.URL),
		zap.String("verdict", event.Verdict),
		zap.String("reason", event.Reason),
		zap.String("vendor", event.Vendor),
		zap.Int64("ownerId", event.OwnerID),
	)

	return nil
}

// RegisterConsumers adds one consumer per topic to group, all delivering to sink.
func RegisterConsumers(
	group *messaging.ConsumerGroup,
	subscriber message.Subscriber,
	sink *LogSink,
	logger *zap.Logger,
	opts ...messaging.ConsumerOption,
) {
	group.Add(messaging.NewConsumer(subscriber, TopicLinkCreated, sink.LinkCreated, logger, opts...))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkVisited, sink.LinkVisited, logger, opts...))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkDeleted, sink.LinkDeleted, logger, opts...))
	group.Add(messaging.NewConsumer(subscriber, TopicURLRejected, sink.URLRejected, logger, opts...))
}
