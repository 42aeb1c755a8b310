package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/model/persona"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyQuestion   = errors.New("question is required")
)

// Generator phrases a grounded answer for one turn. Implemented by the ai
// service; faked in tests.
type Generator interface {
	Reply(ctx context.Context, p persona.Persona, history []chat.Turn, question string, items []evidence.Item) (string, error)
}

// Retriever supplies the evidence for one question. Never fails: retrieval
// errors degrade to fallback or empty evidence inside the retriever.
type Retriever interface {
	ForPersona(ctx context.Context, query, personaSegment string) []evidence.Item
}

// TranscriptStore optionally persists full transcripts keyed by persona and
// session. Failures are logged and never block the conversation.
type TranscriptStore interface {
	Save(personaID, sessionID string, turns []chat.Turn) error
	Load(personaID, sessionID string) ([]chat.Turn, error)
}

// Service owns conversation state and runs the per-turn pipeline:
// retrieve, assemble+generate, append. A turn is appended only after the
// generator succeeded, so a failed call leaves history untouched.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	turns    map[string][]chat.Turn

	personas    persona.Store
	retriever   Retriever
	generator   Generator
	transcripts TranscriptStore
	log         *zap.Logger
}

// NewService bootstraps the in-memory conversation service. transcripts may
// be nil to disable persistence.
func NewService(personas persona.Store, retriever Retriever, generator Generator, transcripts TranscriptStore, log *zap.Logger) *Service {
	return &Service{
		sessions:    make(map[string]chat.Session),
		turns:       make(map[string][]chat.Turn),
		personas:    personas,
		retriever:   retriever,
		generator:   generator,
		transcripts: transcripts,
		log:         log,
	}
}

// CreateSession provisions a session bound to a persona. History starts
// empty; switching personas means creating a new session.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}
	if _, ok := s.personas.FindByID(personaID); !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = make([]chat.Turn, 0, 8)
	s.mu.Unlock()

	return session, nil
}

// ResumeSession recreates a session from a persisted transcript. Load
// failures degrade to an empty history rather than blocking the caller.
func (s *Service) ResumeSession(_ context.Context, personaID, sessionID string) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}
	if sessionID == "" {
		return chat.Session{}, ErrSessionNotFound
	}
	if _, ok := s.personas.FindByID(personaID); !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	var turns []chat.Turn
	if s.transcripts != nil {
		loaded, err := s.transcripts.Load(personaID, sessionID)
		if err != nil {
			s.log.Warn("transcript load failed, resuming with empty history",
				zap.String("persona", personaID),
				zap.String("session", sessionID),
				zap.Error(err))
		} else {
			turns = loaded
		}
	}

	session := chat.Session{
		ID:        sessionID,
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = turns
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// History returns the stored turns for a session in chronological order.
func (s *Service) History(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Persona resolves the persona a session is bound to.
func (s *Service) Persona(ctx context.Context, sessionID string) (persona.Persona, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return persona.Persona{}, err
	}
	p, ok := s.personas.FindByID(session.PersonaID)
	if !ok {
		return persona.Persona{}, fmt.Errorf("%w: %s", ErrPersonaNotFound, session.PersonaID)
	}
	return p, nil
}

// Ask runs one full turn: retrieve evidence for the persona's segment plus
// global, generate the grounded answer, then append the turn. A generation
// failure is returned to the caller and nothing is appended.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (chat.Turn, error) {
	if question == "" {
		return chat.Turn{}, ErrEmptyQuestion
	}

	p, err := s.Persona(ctx, sessionID)
	if err != nil {
		return chat.Turn{}, err
	}
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return chat.Turn{}, err
	}

	items := s.retriever.ForPersona(ctx, question, p.Segment)

	answer, err := s.generator.Reply(ctx, p, history, question, items)
	if err != nil {
		return chat.Turn{}, err
	}

	return s.RecordTurn(ctx, sessionID, question, answer, items)
}

// RecordTurn appends a completed turn to the session history and best-effort
// persists the transcript. Exposed separately so the streaming handlers can
// append after a stream finished successfully.
func (s *Service) RecordTurn(_ context.Context, sessionID, question, answer string, items []evidence.Item) (chat.Turn, error) {
	turn := chat.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Evidence:  items,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return chat.Turn{}, ErrSessionNotFound
	}
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	snapshot := make([]chat.Turn, len(s.turns[sessionID]))
	copy(snapshot, s.turns[sessionID])
	s.mu.Unlock()

	if s.transcripts != nil {
		if err := s.transcripts.Save(session.PersonaID, sessionID, snapshot); err != nil {
			s.log.Warn("transcript save failed",
				zap.String("persona", session.PersonaID),
				zap.String("session", sessionID),
				zap.Error(err))
		}
	}

	return turn, nil
}
