package changefeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"adminpanel/internal/docstore"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAMQPClient struct {
	mock.Mock
	handler func(msg amqp.Delivery) error
}

func (m *MockAMQPClient) PublishJSON(v any) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *MockAMQPClient) Consume(messageHandler func(msg amqp.Delivery) error) error {
	m.handler = messageHandler
	args := m.Called(mock.Anything)
	return args.Error(0)
}

type MockRedisBus struct {
	mock.Mock
	handler func(payload []byte) error
}

func (m *MockRedisBus) PublishJSON(ctx context.Context, v any) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockRedisBus) Subscribe(ctx context.Context, handler func(payload []byte) error) error {
	m.handler = handler
	args := m.Called(ctx)
	return args.Error(0)
}

func sampleChange() docstore.Change {
	return docstore.Change{
		Origin:     "node-a",
		Collection: "products",
		DocumentID: "p1",
		Op:         docstore.OpUpdate,
		At:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAMQP_PublishAndListen(t *testing.T) {
	client := new(MockAMQPClient)
	feed := &AMQP{client: client}
	c := sampleChange()

	client.On("PublishJSON", c).Return(nil).Once()
	require.NoError(t, feed.Publish(context.Background(), c))

	client.On("Consume", mock.Anything).Return(nil).Once()
	var got []docstore.Change
	require.NoError(t, feed.Listen(context.Background(), func(c docstore.Change) { got = append(got, c) }))

	body, _ := json.Marshal(c)
	require.NoError(t, client.handler(amqp.Delivery{Body: body}))
	assert.Error(t, client.handler(amqp.Delivery{Body: []byte("not json")}))
	assert.Error(t, client.handler(amqp.Delivery{Body: []byte(`{"op":"create"}`)}))

	require.Len(t, got, 1)
	assert.Equal(t, c, got[0])
	client.AssertExpectations(t)
}

func TestRedis_PublishAndListen(t *testing.T) {
	bus := new(MockRedisBus)
	feed := &Redis{bus: bus}
	ctx := context.Background()
	c := sampleChange()

	bus.On("PublishJSON", ctx, c).Return(nil).Once()
	require.NoError(t, feed.Publish(ctx, c))

	bus.On("Subscribe", ctx).Return(nil).Once()
	var got []docstore.Change
	require.NoError(t, feed.Listen(ctx, func(c docstore.Change) { got = append(got, c) }))

	body, _ := json.Marshal(c)
	require.NoError(t, bus.handler(body))
	assert.Error(t, bus.handler([]byte("{")))

	require.Len(t, got, 1)
	assert.Equal(t, c, got[0])
	bus.AssertExpectations(t)
}
