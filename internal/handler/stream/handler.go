package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	chatModel "github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	personaModel "github.com/antoniopedrola/synthetic-research/internal/model/persona"
	aiService "github.com/antoniopedrola/synthetic-research/internal/service/ai"
	chatService "github.com/antoniopedrola/synthetic-research/internal/service/chat"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// Handler streams grounded answers over Server-Sent Events.
type Handler struct {
	aiSvc     *aiService.Service
	chatSvc   *chatService.Service
	retriever chatService.Retriever
	log       *zap.Logger
}

// New creates a stream handler.
func New(aiSvc *aiService.Service, chatSvc *chatService.Service, retriever chatService.Retriever, log *zap.Logger) *Handler {
	return &Handler{
		aiSvc:     aiSvc,
		chatSvc:   chatSvc,
		retriever: retriever,
		log:       log,
	}
}

// StreamResponse is one streamed SSE payload.
type StreamResponse struct {
	Event     string          `json:"event"`
	Content   string          `json:"content,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Evidence  []evidence.Item `json:"evidence,omitempty"`
	Finished  bool            `json:"finished,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// HandleStreamRequest runs one grounded turn, streaming the answer as it is
// generated. The turn is recorded only after the stream completed; a failed
// generation leaves the session history untouched.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, question string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	p, err := h.chatSvc.Persona(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, err.Error())
		return err
	}
	history, err := h.chatSvc.History(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, err.Error())
		return err
	}

	items := h.retriever.ForPersona(ctx, question, p.Segment)

	h.send(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   p.Name,
	})
	h.send(w, flusher, StreamResponse{
		Event:     "evidence",
		SessionID: sessionID,
		Evidence:  items,
	})

	answer, err := h.generate(ctx, w, flusher, sessionID, p, history, question, items)
	if err != nil {
		h.sendError(w, flusher, fmt.Sprintf("answer generation failed: %v", err))
		return err
	}

	if _, err := h.chatSvc.RecordTurn(ctx, sessionID, question, answer, items); err != nil {
		h.log.Warn("failed to record turn", zap.String("session", sessionID), zap.Error(err))
	}

	h.send(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	h.log.Info("stream completed",
		zap.String("session", sessionID),
		zap.String("persona", p.ID),
		zap.Int("evidence", len(items)))
	return nil
}

func (h *Handler) generate(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, p personaModel.Persona, history []chatModel.Turn, question string, items []evidence.Item) (string, error) {
	if !h.aiSvc.StreamingEnabled() {
		answer, err := h.aiSvc.Reply(ctx, p, history, question, items)
		if err != nil {
			return "", err
		}
		h.send(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   answer,
		})
		return answer, nil
	}

	stream, err := h.aiSvc.Stream(ctx, p, history, question, items)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.send(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	h.send(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response.Content, nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	if err := utils.SendSSEChunk(w, flusher, response); err != nil {
		h.log.Warn("failed to send SSE chunk", zap.Error(err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, msg string) {
	h.send(w, flusher, StreamResponse{Event: "error", Error: msg})
}
