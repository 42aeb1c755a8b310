package chat_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	chatModel "github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/model/persona"
	chat "github.com/antoniopedrola/synthetic-research/internal/service/chat"
)

type stubRetriever struct {
	items []evidence.Item
}

func (s stubRetriever) ForPersona(_ context.Context, _, _ string) []evidence.Item {
	return s.items
}

type stubGenerator struct {
	answer string
	err    error
}

func (s stubGenerator) Reply(_ context.Context, _ persona.Persona, _ []chatModel.Turn, _ string, _ []evidence.Item) (string, error) {
	return s.answer, s.err
}

type stubTranscripts struct {
	saved  map[string][]chatModel.Turn
	stored map[string][]chatModel.Turn
}

func newStubTranscripts() *stubTranscripts {
	return &stubTranscripts{
		saved:  make(map[string][]chatModel.Turn),
		stored: make(map[string][]chatModel.Turn),
	}
}

func (s *stubTranscripts) Save(personaID, sessionID string, turns []chatModel.Turn) error {
	s.saved[personaID+"/"+sessionID] = turns
	return nil
}

func (s *stubTranscripts) Load(personaID, sessionID string) ([]chatModel.Turn, error) {
	return s.stored[personaID+"/"+sessionID], nil
}

func newService(gen chat.Generator, transcripts chat.TranscriptStore) *chat.Service {
	store := persona.NewMemoryStore(persona.Seed())
	retriever := stubRetriever{items: []evidence.Item{
		{Segment: "korea", SourceType: "user_quote", Content: "evidence", Matched: true, Score: 0.8},
	}}
	return chat.NewService(store, retriever, gen, transcripts, zap.NewNop())
}

func TestServiceGetSession(t *testing.T) {
	svc := newService(stubGenerator{answer: "ok"}, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "jiwoo-kim")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.PersonaID != "jiwoo-kim" {
		t.Fatalf("unexpected persona ID: got %s", got.PersonaID)
	}
}

func TestServiceCreateSessionUnknownPersona(t *testing.T) {
	svc := newService(stubGenerator{answer: "ok"}, nil)

	_, err := svc.CreateSession(context.Background(), "nobody")
	if !errors.Is(err, chat.ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestServiceAskAppendsTurn(t *testing.T) {
	svc := newService(stubGenerator{answer: "an answer"}, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "jiwoo-kim")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	turn, err := svc.Ask(ctx, session.ID, "what do you value most?")
	if err != nil {
		t.Fatalf("Ask err: %v", err)
	}
	if turn.Answer != "an answer" {
		t.Fatalf("unexpected answer: %q", turn.Answer)
	}
	if len(turn.Evidence) != 1 {
		t.Fatalf("turn should carry the retrieved evidence, got %d items", len(turn.Evidence))
	}

	history, err := svc.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 turn in history, got %d", len(history))
	}
	if history[0].Question != "what do you value most?" {
		t.Fatalf("unexpected question in history: %q", history[0].Question)
	}
}

func TestServiceAskGenerationFailureLeavesHistoryUnchanged(t *testing.T) {
	svc := newService(stubGenerator{err: errors.New("model unavailable")}, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "emre-yilmaz")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := svc.Ask(ctx, session.ID, "a question"); err == nil {
		t.Fatal("expected generation error to surface")
	}

	history, err := svc.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("failed turn must not be appended, got %d turns", len(history))
	}
}

func TestServiceAskEmptyQuestion(t *testing.T) {
	svc := newService(stubGenerator{answer: "ok"}, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "jiwoo-kim")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := svc.Ask(ctx, session.ID, ""); !errors.Is(err, chat.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestServiceAskSessionNotFound(t *testing.T) {
	svc := newService(stubGenerator{answer: "ok"}, nil)

	if _, err := svc.Ask(context.Background(), "missing", "hello"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceResumeSessionLoadsTranscript(t *testing.T) {
	transcripts := newStubTranscripts()
	transcripts.stored["agnieszka-nowak/session-1"] = []chatModel.Turn{
		{ID: "t1", SessionID: "session-1", Question: "old question", Answer: "old answer"},
	}

	svc := newService(stubGenerator{answer: "ok"}, transcripts)
	ctx := context.Background()

	session, err := svc.ResumeSession(ctx, "agnieszka-nowak", "session-1")
	if err != nil {
		t.Fatalf("ResumeSession err: %v", err)
	}
	if session.ID != "session-1" {
		t.Fatalf("resumed session kept wrong ID: %s", session.ID)
	}

	history, err := svc.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 1 || history[0].Question != "old question" {
		t.Fatalf("persisted history not restored: %+v", history)
	}
}

func TestServiceRecordTurnPersistsTranscript(t *testing.T) {
	transcripts := newStubTranscripts()
	svc := newService(stubGenerator{answer: "ok"}, transcripts)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "jiwoo-kim")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := svc.RecordTurn(ctx, session.ID, "q", "a", nil); err != nil {
		t.Fatalf("RecordTurn err: %v", err)
	}

	saved, ok := transcripts.saved["jiwoo-kim/"+session.ID]
	if !ok {
		t.Fatal("transcript was not saved")
	}
	if len(saved) != 1 || saved[0].Question != "q" {
		t.Fatalf("unexpected saved transcript: %+v", saved)
	}
}

func TestServiceRecordTurnSessionNotFound(t *testing.T) {
	svc := newService(stubGenerator{answer: "ok"}, nil)

	_, err := svc.RecordTurn(context.Background(), "missing", "q", "a", nil)
	if !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
