// Package session holds the in-memory conversation state. A session binds
// one customer record to one append-only transcript; nothing here is
// durable, only the synchronized store fields outlive the session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsakai3418/paybot/internal/customer"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry, in insertion order.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is a snapshot of one conversation. Transcript is a copy; mutate
// through the registry, not through the snapshot.
type Session struct {
	ID         string
	Customer   customer.Record
	RowIndex   int
	Transcript []Turn
	CreatedAt  time.Time
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create opens a session for a looked-up customer, seeded with the welcome
// message as the first assistant turn.
func (r *Registry) Create(rec customer.Record, rowIndex int, welcome string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Session{
		ID:         uuid.New().String(),
		Customer:   rec,
		RowIndex:   rowIndex,
		Transcript: []Turn{{Role: RoleAssistant, Text: welcome}},
		CreatedAt:  time.Now(),
	}
	r.sessions[s.ID] = s
	return snapshot(s)
}

// Get returns a snapshot of the session, or false if it does not exist.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return snapshot(s), true
}

// Append adds one turn to the session's transcript. Appending to an
// unknown session is a no-op and returns false.
func (r *Registry) Append(id string, turn Turn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Transcript = append(s.Transcript, turn)
	return true
}

func snapshot(s *Session) Session {
	out := *s
	out.Transcript = make([]Turn, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	return out
}
