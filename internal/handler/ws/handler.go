package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatModel "github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	personaModel "github.com/antoniopedrola/synthetic-research/internal/model/persona"
	aiService "github.com/antoniopedrola/synthetic-research/internal/service/ai"
	chatService "github.com/antoniopedrola/synthetic-research/internal/service/chat"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// Handler serves a WebSocket variant of the streaming chat endpoint. One
// connection maps to one session; each inbound question runs a full grounded
// turn with the answer streamed back as delta frames.
type Handler struct {
	aiSvc     *aiService.Service
	chatSvc   *chatService.Service
	retriever chatService.Retriever
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

// New creates the WebSocket handler.
func New(aiSvc *aiService.Service, chatSvc *chatService.Service, retriever chatService.Retriever, log *zap.Logger) *Handler {
	return &Handler{
		aiSvc:     aiSvc,
		chatSvc:   chatSvc,
		retriever: retriever,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

type outboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Content   string          `json:"content,omitempty"`
	Evidence  []evidence.Item `json:"evidence,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.log.Info("websocket connected", zap.String("session", sessionID))

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}

		if msg.Type != "question" || msg.Question == "" {
			h.sendError(conn, sessionID, "expected a question message")
			continue
		}

		h.handleQuestion(r.Context(), conn, sessionID, msg.Question)
	}
}

// handleQuestion runs one grounded turn over the connection. Errors are
// reported as frames; the turn is recorded only after generation succeeded.
func (h *Handler) handleQuestion(ctx context.Context, conn *websocket.Conn, sessionID, question string) {
	p, err := h.chatSvc.Persona(ctx, sessionID)
	if err != nil {
		h.sendError(conn, sessionID, err.Error())
		return
	}
	history, err := h.chatSvc.History(ctx, sessionID)
	if err != nil {
		h.sendError(conn, sessionID, err.Error())
		return
	}

	items := h.retriever.ForPersona(ctx, question, p.Segment)

	h.send(conn, outboundMessage{Type: "start", SessionID: sessionID, Content: p.Name})
	h.send(conn, outboundMessage{Type: "evidence", SessionID: sessionID, Evidence: items})

	answer, err := h.generate(ctx, conn, sessionID, p, history, question, items)
	if err != nil {
		h.sendError(conn, sessionID, "answer generation failed: "+err.Error())
		return
	}

	if _, err := h.chatSvc.RecordTurn(ctx, sessionID, question, answer, items); err != nil {
		h.log.Warn("failed to record turn", zap.String("session", sessionID), zap.Error(err))
	}

	h.send(conn, outboundMessage{Type: "end", SessionID: sessionID})
}

func (h *Handler) generate(ctx context.Context, conn *websocket.Conn, sessionID string, p personaModel.Persona, history []chatModel.Turn, question string, items []evidence.Item) (string, error) {
	if !h.aiSvc.StreamingEnabled() {
		answer, err := h.aiSvc.Reply(ctx, p, history, question, items)
		if err != nil {
			return "", err
		}
		h.send(conn, outboundMessage{Type: "message", SessionID: sessionID, Content: answer})
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
			h.send(conn, outboundMessage{Type: "delta", SessionID: sessionID, Content: chunk.Content})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	h.send(conn, outboundMessage{Type: "message", SessionID: sessionID, Content: response.Content})
	return response.Content, nil
}

func (h *Handler) send(conn *websocket.Conn, msg outboundMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to marshal websocket message", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Warn("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID, msg string) {
	h.send(conn, outboundMessage{Type: "error", SessionID: sessionID, Error: msg})
}
