package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zidesign/catalog/types"
)

// EventType names a work lifecycle event.
type EventType string

const (
	EventWorkSubmitted EventType = "work.submitted"
	EventWorkApproved  EventType = "work.approved"
	EventWorkRejected  EventType = "work.rejected"
	EventWorkDeleted   EventType = "work.deleted"
)

// EventForStatus returns the event announcing a moderation decision.
func EventForStatus(status types.Status) (EventType, bool) {
	switch status {
	case types.StatusApproved:
		return EventWorkApproved, true
	case types.StatusRejected:
		return EventWorkRejected, true
	case types.StatusUnknown, types.StatusPending:
		return "", false
	default:
		return "", false
	}
}

// WorkEvent is the payload published for every work mutation.
type WorkEvent struct {
	Type       EventType  `json:"type"`
	WorkID     string     `json:"work_id"`
	ActorID    string     `json:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at"`
	Work       types.Work `json:"work"`
}

const attrEventType = "event_type"

// PublishEvent encodes ev as JSON and sends it to the events channel.
func (m *MQ) PublishEvent(ctx context.Context, ev WorkEvent) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return m.backend.Publish(ctx, m.channel, data, map[string]string{attrEventType: string(ev.Type)})
}

// ConsumeEvents blocks delivering decoded events to handler until ctx
// is done. Undecodable messages are acknowledged and skipped.
func (m *MQ) ConsumeEvents(ctx context.Context, handler func(ctx context.Context, id string, ev WorkEvent) error) error {
	return m.backend.Subscribe(ctx, m.channel, func(ctx context.Context, msg Message) error {
		var ev WorkEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil
		}
		return handler(ctx, msg.ID, ev)
	})
}
