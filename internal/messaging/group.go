package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a consumer the group can start and stop.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs the event consumers of one process on a shared subscriber.
// Consumers are stopped in reverse start order and only if they started.
type ConsumerGroup struct {
	subscriber message.Subscriber
	logger     *zap.Logger

	mu        sync.Mutex
	consumers []Runnable
	running   []Runnable
	closed    bool
}

func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

func (g *ConsumerGroup) Add(consumer Runnable) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consumers = append(g.consumers, consumer)
}

func (g *ConsumerGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.consumers)
}

// Topics lists the topics of consumers that report one, in registration order.
func (g *ConsumerGroup) Topics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	topics := make([]string, 0, len(g.consumers))
	for _, c := range g.consumers {
		if name := topicOf(c); name != "" {
			topics = append(topics, name)
		}
	}

	return topics
}

// Start subscribes every consumer. On the first failure the consumers started so far are stopped.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return errors.New("consumer group is shut down")
	}

	for _, c := range g.consumers {
		if err := c.Start(ctx); err != nil {
			stopErr := g.stopRunning()

			return errors.Join(fmt.Errorf("start consumer %q: %w", topicOf(c), err), stopErr)
		}

		g.running = append(g.running, c)
	}

	g.logger.Info("consumer group started", zap.Strings("topics", g.topicsLocked()))

	return nil
}

// Shutdown stops running consumers and closes the subscriber. Errors from every step are joined.
func (g *ConsumerGroup) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}

	g.closed = true
	g.logger.Info("shutting down consumer group", zap.Int("running", len(g.running)))

	err := g.stopRunning()

	if closeErr := g.subscriber.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close subscriber: %w", closeErr))
	}

	return err
}

func (g *ConsumerGroup) stopRunning() error {
	var errs []error

	for i := len(g.running) - 1; i >= 0; i-- {
		c := g.running[i]
		if err := c.Shutdown(); err != nil {
			g.logger.Warn("consumer shutdown failed", zap.String("topic", topicOf(c)), zap.Error(err))
			errs = append(errs, err)
		}
	}

	g.running = nil

	return errors.Join(errs...)
}

func (g *ConsumerGroup) topicsLocked() []string {
	topics := make([]string, 0, len(g.running))
	for _, c := range g.running {
		topics = append(topics, topicOf(c))
	}

	return topics
}

func topicOf(r Runnable) string {
	if t, ok := r.(interface{ Topic() string }); ok {
		return t.Topic()
	}

	return ""
}
