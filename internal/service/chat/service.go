package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
)

type mounted struct {
	session chat.Session
	widget  *Widget
}

// Service keeps the widgets mounted by HTTP clients in memory.
type Service struct {
	mu        sync.RWMutex
	widgets   map[string]mounted
	personas  persona.Store
	completer Completer
	logger    *zap.Logger
}

// NewService bootstraps the in-memory widget registry.
func NewService(personas persona.Store, completer Completer, logger *zap.Logger) *Service {
	return &Service{
		widgets:   make(map[string]mounted),
		personas:  personas,
		completer: completer,
		logger:    logging.OrNop(logger).Named("chat"),
	}
}

// Mount creates a widget for personaID; empty selects the default persona.
func (s *Service) Mount(_ context.Context, personaID string) (chat.Session, *Widget, error) {
	p, ok := s.personas.Resolve(personaID)
	if !ok {
		return chat.Session{}, nil, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		CreatedAt: time.Now().UTC(),
	}
	widget := NewWidget(p, s.completer, s.logger.With(zap.String("session", session.ID)))

	s.mu.Lock()
	s.widgets[session.ID] = mounted{session: session, widget: widget}
	s.mu.Unlock()

	s.logger.Info("widget mounted", zap.String("session", session.ID), zap.String("persona", p.ID))
	return session, widget, nil
}

// Widget retrieves a mounted widget by session identifier.
func (s *Service) Widget(_ context.Context, sessionID string) (*Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.widgets[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return m.widget, nil
}

// Session retrieves session metadata by identifier.
func (s *Service) Session(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.widgets[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return m.session, nil
}

// Unmount closes and forgets a widget.
func (s *Service) Unmount(_ context.Context, sessionID string) error {
	s.mu.Lock()
	m, ok := s.widgets[sessionID]
	delete(s.widgets, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.widget.Close()
	s.logger.Info("widget unmounted", zap.String("session", sessionID))
	return nil
}

// Shutdown unmounts every widget and waits for outstanding completions.
func (s *Service) Shutdown() {
	s.mu.Lock()
	all := s.widgets
	s.widgets = make(map[string]mounted)
	s.mu.Unlock()

	for _, m := range all {
		m.widget.Close()
	}
	for _, m := range all {
		m.widget.Wait()
	}
}
