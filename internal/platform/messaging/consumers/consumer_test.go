package consumers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out queued messages, then blocks until ctx is done or Close is called.
type fakeReader struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	fetchErrs []error
	committed []int64
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{messages: make(chan kafka.Message, len(msgs)), closed: make(chan struct{})}
	for _, m := range msgs {
		r.messages <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	r.mu.Unlock()

	select {
	case m := <-r.messages:
		return m, nil
	case <-r.closed:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestNewKafkaConsumer(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers:         "localhost:9092",
		ChangeFeedTopic: "bonus_updates",
		ConsumerGroup:   "bonus-watcher-group",
		MinBytes:        1,
		MaxBytes:        10240,
		MaxWait:         time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), testLogger(), cfg)
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, "bonus_updates", consumer.topic)
	assert.Equal(t, "bonus-watcher-group", consumer.groupID)
	assert.NoError(t, consumer.Close())
}

func TestKafkaConsumer_Subscribe(t *testing.T) {
	t.Run("commits every message in order", func(t *testing.T) {
		reader := newFakeReader(
			kafka.Message{Offset: 1, Value: []byte("a")},
			kafka.Message{Offset: 2, Value: []byte("b")},
		)
		consumer := newKafkaConsumer(testLogger(), reader, "bonus_updates", "g")

		var handled sync.WaitGroup
		handled.Add(2)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, consumer.Subscribe(ctx, func(context.Context, []byte, []byte) error {
			handled.Done()
			return nil
		}))
		handled.Wait()
		require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, time.Millisecond)
		cancel()
		<-consumer.Done()

		assert.Equal(t, []int64{1, 2}, reader.commits())
	})

	t.Run("failed message is retried before the next offset", func(t *testing.T) {
		reader := newFakeReader(
			kafka.Message{Offset: 1, Value: []byte("flaky")},
			kafka.Message{Offset: 2, Value: []byte("ok")},
		)
		consumer := newKafkaConsumer(testLogger(), reader, "bonus_updates", "g")
		consumer.retryDelay = time.Millisecond

		var (
			mu    sync.Mutex
			order []string
		)
		attempts := 0
		done := make(chan struct{})
		handler := func(_ context.Context, _ []byte, value []byte) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, string(value))
			if string(value) == "flaky" {
				attempts++
				if attempts == 1 {
					return errors.New("store unavailable")
				}
				return nil
			}
			close(done)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, consumer.Subscribe(ctx, handler))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("second message was never handled")
		}
		require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, time.Millisecond)
		cancel()
		<-consumer.Done()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"flaky", "flaky", "ok"}, order)
		assert.Equal(t, []int64{1, 2}, reader.commits())
	})

	t.Run("cancel during retry leaves the message uncommitted", func(t *testing.T) {
		reader := newFakeReader(kafka.Message{Offset: 5, Value: []byte("bad")})
		consumer := newKafkaConsumer(testLogger(), reader, "bonus_updates", "g")
		consumer.retryDelay = time.Millisecond

		failed := make(chan struct{}, 1)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, consumer.Subscribe(ctx, func(context.Context, []byte, []byte) error {
			select {
			case failed <- struct{}{}:
			default:
			}
			return errors.New("handler failed")
		}))
		<-failed
		cancel()

		select {
		case <-consumer.Done():
		case <-time.After(time.Second):
			t.Fatal("consumer loop did not stop while retrying")
		}
		assert.Empty(t, reader.commits())
	})

	t.Run("second subscribe is rejected", func(t *testing.T) {
		consumer := newKafkaConsumer(testLogger(), newFakeReader(), "bonus_updates", "g")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, consumer.Subscribe(ctx, func(context.Context, []byte, []byte) error { return nil }))
		assert.ErrorIs(t, consumer.Subscribe(ctx, func(context.Context, []byte, []byte) error { return nil }), ErrAlreadySubscribed)
	})

	t.Run("close stops the loop", func(t *testing.T) {
		reader := newFakeReader()
		consumer := newKafkaConsumer(testLogger(), reader, "bonus_updates", "g")

		require.NoError(t, consumer.Subscribe(context.Background(), func(context.Context, []byte, []byte) error { return nil }))
		require.NoError(t, consumer.Close())

		select {
		case <-consumer.Done():
		case <-time.After(time.Second):
			t.Fatal("consumer loop did not stop after Close")
		}
	})

	t.Run("fetch errors are retried", func(t *testing.T) {
		reader := newFakeReader(kafka.Message{Offset: 9})
		reader.fetchErrs = []error{errors.New("broker not available")}
		consumer := newKafkaConsumer(testLogger(), reader, "bonus_updates", "g")
		consumer.retryDelay = time.Millisecond

		got := make(chan int64, 1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, consumer.Subscribe(ctx, func(context.Context, []byte, []byte) error {
			got <- 9
			return nil
		}))

		select {
		case offset := <-got:
			assert.Equal(t, int64(9), offset)
		case <-time.After(time.Second):
			t.Fatal("message was not delivered after a fetch error")
		}
	})
}

func TestKafkaConsumer_Close(t *testing.T) {
	t.Run("CloseWithNilReader", func(t *testing.T) {
		consumer := &KafkaConsumer{reader: nil, logger: testLogger()}
		require.NoError(t, consumer.Close(), "Close should return nil if reader is nil")
	})
}
