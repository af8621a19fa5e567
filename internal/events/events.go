package events

import (
	"context"
	"time"
)

const (
	TypeUserRegistered = "user_registered"
	TypeUserLoggedIn   = "user_logged_in"
	TypeUserLoggedOut  = "user_logged_out"
	TypeUserUpdated    = "user_updated"
	TypeUserDeleted    = "user_deleted"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   uint      `json:"user_id"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers user lifecycle events to other services.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
