package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"history.undone", "history.undone", true},
		{"history.undone", "history.redone", false},
		{"history.undone", "history.*", true},
		{"history.undone", "*", false},
		{"history.undone", "**", true},
		{"history.undone", "history.**", true},
		{"history", "history.**", true},
		{"config.reloaded", "history.*", false},
		{"a.b.c", "a.*.c", true},
		{"a.b.c", "a.**.c", true},
		{"a.c", "a.**.c", true},
		{"a.b", "a.b.c", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestTopicIsValid(t *testing.T) {
	assert.True(t, Topic("history.pushed").IsValid())
	assert.False(t, Topic("").IsValid())
	assert.False(t, Topic("history..pushed").IsValid())
	assert.False(t, Topic(".history").IsValid())
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	var got []Event

	_, err := bus.Subscribe("history.*", func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	n := bus.Publish(TopicHistoryUndone, "Move task")
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, bus.Publish(TopicConfigReloaded, nil))

	require.Len(t, got, 1)
	assert.Equal(t, TopicHistoryUndone, got[0].Topic)
	assert.Equal(t, "Move task", got[0].Payload)
}

func TestBusOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	var order []string

	first, err := bus.Subscribe("**", func(Event) { order = append(order, "first") })
	require.NoError(t, err)
	_, err = bus.Subscribe("history.pushed", func(Event) { order = append(order, "second") })
	require.NoError(t, err)

	bus.Publish(TopicHistoryPushed, nil)
	assert.Equal(t, []string{"first", "second"}, order)

	first.Unsubscribe()
	first.Unsubscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	order = nil
	bus.Publish(TopicHistoryPushed, nil)
	assert.Equal(t, []string{"second"}, order)
}

func TestBusReentrantUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub *Subscription
	sub, err := bus.Subscribe("history.*", func(Event) {
		calls++
		sub.Unsubscribe()
	})
	require.NoError(t, err)

	bus.Publish(TopicHistoryCleared, nil)
	bus.Publish(TopicHistoryCleared, nil)
	assert.Equal(t, 1, calls)
}

func TestBusSubscribeInvalid(t *testing.T) {
	bus := NewBus()
	_, err := bus.Subscribe("", func(Event) {})
	assert.ErrorIs(t, err, ErrInvalidTopic)
	_, err = bus.Subscribe("history.*", nil)
	assert.Error(t, err)
}
