package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/types"
)

func TestPublishAndConsumeEvents(t *testing.T) {
	m := New(NewMemoryBackend(), "works.events")
	t.Cleanup(func() { m.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := WorkEvent{
		Type:       EventWorkSubmitted,
		WorkID:     "w1",
		ActorID:    "u1",
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Work: types.Work{
			ID:       "w1",
			Title:    "t",
			Category: types.CategoryIcons,
			License:  types.LicenseFree,
			Tags:     []string{},
			AuthorID: "u1",
			Status:   types.StatusPending,
		},
	}
	id, err := m.PublishEvent(ctx, ev)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan WorkEvent, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.ConsumeEvents(ctx, func(_ context.Context, gotID string, got WorkEvent) error {
			assert.Equal(t, id, gotID)
			received <- got
			cancel()
			return nil
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, EventWorkSubmitted, got.Type)
		assert.Equal(t, "w1", got.WorkID)
		assert.Equal(t, types.StatusPending, got.Work.Status)
		assert.True(t, ev.OccurredAt.Equal(got.OccurredAt))
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
	assert.True(t, errors.Is(<-errCh, context.Canceled))
}

func TestEventForStatus(t *testing.T) {
	ev, ok := EventForStatus(types.StatusApproved)
	assert.True(t, ok)
	assert.Equal(t, EventWorkApproved, ev)

	ev, ok = EventForStatus(types.StatusRejected)
	assert.True(t, ok)
	assert.Equal(t, EventWorkRejected, ev)

	_, ok = EventForStatus(types.StatusPending)
	assert.False(t, ok)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	m, err := Open(ctx, config.MQConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = Open(ctx, config.MQConfig{Backend: "memory", Channel: "events"})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "events", m.Channel())

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(ctx, config.MQConfig{Backend: "rabbitmq"})
	assert.Error(t, err)
}
