package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	topic := NewTopic[int](0)

	var got []string
	_, err := topic.Subscribe(func(v int) { got = append(got, "first") })
	require.NoError(t, err)
	_, err = topic.Subscribe(func(v int) { got = append(got, "second") })
	require.NoError(t, err)
	_, err = topic.Subscribe(func(v int) { got = append(got, "third") })
	require.NoError(t, err)

	topic.Publish(1)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	topic := NewTopic[string](0)

	count := 0
	unsub, err := topic.Subscribe(func(string) { count++ })
	require.NoError(t, err)

	topic.Publish("a")
	unsub()
	topic.Publish("b")

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, topic.SubscriberCount())

	// second unsubscribe is a no-op
	unsub()
}

func TestSubscriberLimit(t *testing.T) {
	topic := NewTopic[int](2)

	_, err := topic.Subscribe(func(int) {})
	require.NoError(t, err)
	_, err = topic.Subscribe(func(int) {})
	require.NoError(t, err)

	_, err = topic.Subscribe(func(int) {})
	assert.ErrorIs(t, err, ErrTooManySubscribers)
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	topic := NewTopic[int](0)

	var reached bool
	_, err := topic.Subscribe(func(int) { panic("boom") })
	require.NoError(t, err)
	_, err = topic.Subscribe(func(int) { reached = true })
	require.NoError(t, err)

	topic.Publish(1)

	assert.True(t, reached)
}
