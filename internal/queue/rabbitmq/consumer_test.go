package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifyd/internal/domain"
)

type commandsMock struct {
	mock.Mock
}

func (m *commandsMock) Refresh(ctx context.Context, limit int) error {
	args := m.Called(ctx, limit)
	return args.Error(0)
}

func (m *commandsMock) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ackMock struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackMock) Ack(_ uint64, _ bool) error {
	a.acked++
	return nil
}

func (a *ackMock) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackMock) Reject(_ uint64, _ bool) error {
	return nil
}

func handle(t *testing.T, commands *commandsMock, body string) *ackMock {
	t.Helper()
	consumer := &Consumer{commands: commands, logger: zap.NewNop()}
	ack := &ackMock{}
	err := consumer.handleMessage(context.Background(), amqp.Delivery{
		Body:         []byte(body),
		Acknowledger: ack,
	})
	require.NoError(t, err)
	return ack
}

func TestConsumerHandleMessage(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		commands := &commandsMock{}
		ack := handle(t, commands, "{bad json")
		require.Equal(t, 1, ack.acked)
		require.Equal(t, 0, ack.nacked)
		commands.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
		commands.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("unknown action", func(t *testing.T) {
		commands := &commandsMock{}
		ack := handle(t, commands, `{"action":"delete_all"}`)
		require.Equal(t, 1, ack.acked)
		commands.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
	})

	t.Run("mark_read without id", func(t *testing.T) {
		commands := &commandsMock{}
		ack := handle(t, commands, `{"action":"mark_read"}`)
		require.Equal(t, 1, ack.acked)
		commands.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
	})

	t.Run("mark_read forwarded", func(t *testing.T) {
		commands := &commandsMock{}
		commands.On("MarkRead", mock.Anything, int64(9)).Return(nil).Once()
		ack := handle(t, commands, `{"action":"mark_read","notification_id":9}`)
		require.Equal(t, 1, ack.acked)
		require.Equal(t, 0, ack.nacked)
		commands.AssertExpectations(t)
	})

	t.Run("get_recent forwarded", func(t *testing.T) {
		commands := &commandsMock{}
		commands.On("Refresh", mock.Anything, 20).Return(nil).Once()
		ack := handle(t, commands, `{"action":"get_recent","limit":20}`)
		require.Equal(t, 1, ack.acked)
		commands.AssertExpectations(t)
	})

	t.Run("not connected -> ack and drop", func(t *testing.T) {
		commands := &commandsMock{}
		commands.On("MarkRead", mock.Anything, int64(9)).Return(domain.ErrNotConnected).Once()
		ack := handle(t, commands, `{"action":"mark_read","notification_id":9}`)
		require.Equal(t, 1, ack.acked)
		require.Equal(t, 0, ack.nacked)
		commands.AssertExpectations(t)
	})

	t.Run("write error -> nack", func(t *testing.T) {
		commands := &commandsMock{}
		commands.On("MarkRead", mock.Anything, int64(9)).Return(errors.New("broken pipe")).Once()
		ack := handle(t, commands, `{"action":"mark_read","notification_id":9}`)
		require.Equal(t, 0, ack.acked)
		require.Equal(t, 1, ack.nacked)
		require.True(t, ack.requeue)
		commands.AssertExpectations(t)
	})
}

func TestAMQPHeaderCarrier(t *testing.T) {
	carrier := amqpHeaderCarrier(amqp.Table{})
	carrier.Set("traceparent", "00-abc-def-01")
	require.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	require.Equal(t, "", carrier.Get("missing"))
	require.Equal(t, []string{"traceparent"}, carrier.Keys())

	carrier["retries"] = int32(3)
	carrier["baggage"] = []byte("tenant=clinic-1")
	require.Equal(t, "3", carrier.Get("retries"))
	require.Equal(t, "tenant=clinic-1", carrier.Get("baggage"))
	require.Equal(t, []string{"baggage", "retries", "traceparent"}, carrier.Keys())
}
