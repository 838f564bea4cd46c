package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/linkguard/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	Code   string `json:"code"`
	Clicks int64  `json:"clicks"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func payload(t *testing.T, event testEvent) *message.Message {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), data)
}

func waitAck(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("message was nacked")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack")
	}
}

func waitNack(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("message should have been nacked")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for nack")
	}
}

func TestConsumer(t *testing.T) {
	t.Run("acks handled messages", func(t *testing.T) {
		sub := newMockSubscriber()
		reg := prometheus.NewRegistry()
		metrics := messaging.NewMetrics(reg)

		received := make(chan testEvent, 1)
		consumer := messaging.NewConsumer(sub, "link.visited",
			func(_ context.Context, event *testEvent) error {
				received <- *event

				return nil
			},
			zap.NewNop(),
			messaging.WithConsumerMetrics(metrics),
		)

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		msg := payload(t, testEvent{Code: "abcd", Clicks: 3})
		sub.msgChan <- msg

		waitAck(t, msg)
		assert.Equal(t, testEvent{Code: "abcd", Clicks: 3}, <-received)
		assert.Equal(t, "link.visited", consumer.Topic())
		assert.Eventually(t, func() bool {
			n, err := testutil.GatherAndCount(reg, "linkguard_events_consumed_total")

			return err == nil && n == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("nacks undecodable payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "link.visited",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		msg := message.NewMessage(uuid.NewString(), []byte("{not json"))
		sub.msgChan <- msg

		waitNack(t, msg)
	})

	t.Run("nacks when the handler fails", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "link.visited",
			func(context.Context, *testEvent) error { return errors.New("sink down") },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		msg := payload(t, testEvent{Code: "abcd"})
		sub.msgChan <- msg

		waitNack(t, msg)
	})

	t.Run("start fails when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, "link.visited",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		require.Error(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("stops when the subscription closes", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "link.visited",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, sub.Close())

		assert.NoError(t, consumer.Shutdown())
	})
}
