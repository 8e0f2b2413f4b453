package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type Action string

const (
	ActionLogin       Action = "LOGIN"
	ActionLoginFailed Action = "LOGIN_FAILED"
	ActionRefresh     Action = "REFRESH"
	ActionLogout      Action = "LOGOUT"
	ActionRegister    Action = "REGISTER"
)

// Event is one security-relevant fact. IDs are ULIDs so every sink orders
// events the same way.
type Event struct {
	ID        string     `json:"id"`
	Action    Action     `json:"action"`
	Resource  string     `json:"resource"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	IPAddress string     `json:"ipAddress,omitempty"`
	UserAgent string     `json:"userAgent,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	At        time.Time  `json:"at"`
}

func NewEvent(action Action, at time.Time) Event {
	return Event{
		ID:       ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Action:   action,
		Resource: "auth",
		At:       at.UTC(),
	}
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Multi fans an event out to every sink; one failing sink does not stop the rest.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
