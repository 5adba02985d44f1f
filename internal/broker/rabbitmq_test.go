package broker

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published []recordedPublish
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, recordedPublish{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublishEventUsesOrdersExchange(t *testing.T) {
	ch := &fakeChannel{}
	r := &RabbitMQ{ch: ch}

	require.NoError(t, r.PublishEvent(context.Background(), "order.status.delivered", map[string]string{"orderNumber": "ORD1"}))

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, OrdersExchange, p.exchange)
	assert.Equal(t, "order.status.delivered", p.key)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "application/json", p.msg.ContentType)

	var body map[string]string
	require.NoError(t, json.Unmarshal(p.msg.Body, &body))
	assert.Equal(t, "ORD1", body["orderNumber"])
}

func TestPublishEventRejectsUnencodablePayload(t *testing.T) {
	r := &RabbitMQ{ch: &fakeChannel{}}
	assert.Error(t, r.PublishEvent(context.Background(), "order.placed", make(chan int)))
	assert.NoError(t, Noop{}.PublishEvent(context.Background(), "order.placed", nil))
}
