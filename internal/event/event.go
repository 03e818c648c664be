// Package event carries account lifecycle notifications to whatever real-time
// transport subscribes to them.
package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAccountRegistered Type = "account.registered"
	TypeAccountLogin      Type = "account.login"
	TypeAccountUpdated    Type = "account.updated"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
}

func New(t Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
	}
}

type Publisher interface {
	Publish(e Event)
}
