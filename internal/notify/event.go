// Package notify delivers like, match and profile-view events to users.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/discovery/internal/metrics"
)

// Type is the kind of entity an event refers to.
type Type string

const (
	TypeLike        Type = "like"
	TypeMatch       Type = "match"
	TypeUnmatch     Type = "unmatch"
	TypeProfileView Type = "profile_view"
)

const StatusSent = "sent"

type Event struct {
	Type      Type      `json:"type"`
	EntityID  string    `json:"entity_id"`
	Sender    string    `json:"sender"`
	Receivers []string  `json:"receivers"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent stamps status and creation time.
func NewEvent(t Type, entityID, sender string, receivers ...string) Event {
	return Event{
		Type:      t,
		EntityID:  entityID,
		Sender:    sender,
		Receivers: receivers,
		Status:    StatusSent,
		CreatedAt: time.Now().UTC(),
	}
}

// Sink accepts events. Implementations must be safe for concurrent use.
type Sink interface {
	Create(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Create(context.Context, Event) error { return nil }

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Create(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Create(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deliver sends ev and only logs a failure. Callers never see sink errors.
func Deliver(ctx context.Context, s Sink, log *slog.Logger, ev Event) {
	if s == nil {
		return
	}
	err := s.Create(ctx, ev)
	metrics.RecordNotify(string(ev.Type), err)
	if err != nil {
		log.Warn("notification delivery failed",
			"type", ev.Type, "entity_id", ev.EntityID, "sender", ev.Sender, "error", err)
	}
}
