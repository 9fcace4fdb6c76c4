package events

import (
	"context"
	"sync"
	"time"
)

// Event types
const (
	ClaimCreated    = "claim.created"
	ClaimApproved   = "claim.approved"
	ClaimRejected   = "claim.rejected"
	ReturnRequested = "return.requested"
	ReturnApproved  = "return.approved"
)

// Event is one inventory lifecycle fact, published after its transaction commits.
type Event struct {
	Type     string    `json:"type"`
	ItemID   uint      `json:"itemId"`
	ClaimID  uint      `json:"claimId,omitempty"`
	ActorID  string    `json:"actorId"`
	Quantity int       `json:"quantity,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. Used when no brokers are configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
