package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"datatalk-backend/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionStore keeps uploaded datasets together with their chat history.
// Returned sessions are snapshots; mutate them only through the store.
type SessionStore interface {
	CreateSession(ctx context.Context, name string, table model.Table, summary model.DataSummary) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	DeleteIdleSessions(ctx context.Context, idleSince time.Time) (int, error)
}

type inMemorySessionStore struct {
	sessions map[string]*model.Session // map[sessionID]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

func NewInMemorySessionStore() SessionStore {
	return &inMemorySessionStore{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

func (s *inMemorySessionStore) CreateSession(ctx context.Context, name string, table model.Table, summary model.DataSummary) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session := &model.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Table:     table,
		Summary:   summary,
		History:   make([]model.ChatMessage, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	return snapshot(session), nil
}

func (s *inMemorySessionStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return snapshot(session), nil
	}
	return nil, ErrSessionNotFound
}

func (s *inMemorySessionStore) AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.History = append(session.History, messages...)
	session.UpdatedAt = s.now()
	return nil
}

func (s *inMemorySessionStore) DeleteIdleSessions(ctx context.Context, idleSince time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(idleSince) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// snapshot copies the mutable parts of a session. The table is shared since it
// is never modified after creation.
func snapshot(session *model.Session) *model.Session {
	out := *session
	out.History = append([]model.ChatMessage(nil), session.History...)
	return &out
}
