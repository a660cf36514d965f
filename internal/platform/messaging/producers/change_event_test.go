package producers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChangeEventProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ChangeEventProducer{logger: testLogger(), writer: mockWriter, topic: "bonus_updates"}

		value := map[string]interface{}{"table": "bonuses", "eventType": "UPDATE"}
		expected, _ := json.Marshal(value)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && string(msgs[0].Key) == "7" && string(msgs[0].Value) == string(expected)
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "7", value))
		mockWriter.AssertExpectations(t)
	})

	t.Run("UnencodableValue", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ChangeEventProducer{logger: testLogger(), writer: mockWriter, topic: "bonus_updates"}

		err := producer.Publish(ctx, "7", make(chan int))
		assert.ErrorContains(t, err, "failed to marshal change event")
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ChangeEventProducer{logger: testLogger(), writer: mockWriter, topic: "bonus_updates"}
		writerError := errors.New("broker unavailable")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		assert.ErrorIs(t, producer.Publish(ctx, "7", map[string]string{}), writerError)
		mockWriter.AssertExpectations(t)
	})
}

func TestChangeEventProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &ChangeEventProducer{logger: testLogger(), writer: mockWriter, topic: "bonus_updates"}
	mockWriter.On("Close").Return(nil).Once()

	require.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
