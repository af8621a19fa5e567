package audit

import (
	"context"
	"time"
)

const (
	ActionLoginSuccess   = "auth.login.success"
	ActionLoginFailed    = "auth.login.failed"
	ActionRefreshSuccess = "auth.refresh.success"
	ActionRefreshReuse   = "auth.refresh.reuse_detected"
	ActionRefreshRace    = "auth.refresh.race_lost"
	ActionLogout         = "auth.logout"
)

type Entry struct {
	Action    string         `json:"action"`
	UserID    uint           `json:"user_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	At        time.Time      `json:"@timestamp"`
}

type Query struct {
	UserID uint
	From   int
	Size   int
}

// Recorder stores security-relevant auth events and lets admins search them.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Search(ctx context.Context, q Query) (int64, []Entry, error)
}

type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Search(context.Context, Query) (int64, []Entry, error) { return 0, nil, nil }

type clientKey struct{}

type Client struct {
	IP        string
	UserAgent string
}

// WithClient stores the caller's network identity for entries recorded further down the stack.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

// Stamp fills At and the client fields from ctx when they are empty.
func Stamp(ctx context.Context, e Entry) Entry {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	c := ClientFrom(ctx)
	if e.IP == "" {
		e.IP = c.IP
	}
	if e.UserAgent == "" {
		e.UserAgent = c.UserAgent
	}
	return e
}
