package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/antoniopedrola/synthetic-research/internal/service/chat"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// Handler exposes session lifecycle and the blocking ask endpoint.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/history", h.handleHistory)
	r.Post("/session/{sessionID}/ask", h.handleAsk)
}

// handleCreateSession creates a session for a persona. Supplying sessionId
// resumes a previously persisted transcript instead of starting fresh.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.PersonaID == "" {
		utils.RespondError(w, http.StatusBadRequest, "personaId is required")
		return
	}

	var err error
	var session any
	if payload.SessionID != "" {
		session, err = h.chatSvc.ResumeSession(r.Context(), payload.PersonaID, payload.SessionID)
	} else {
		session, err = h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	}
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.chatSvc.History(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

// handleAsk runs one full grounded turn and returns the appended turn,
// including the evidence the answer relied on. A generation failure returns
// 502 and leaves the history unchanged.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.Ask(r.Context(), sessionID, payload.Question)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrPersonaNotFound),
		errors.Is(err, chatService.ErrPersonaRequired),
		errors.Is(err, chatService.ErrEmptyQuestion):
		return http.StatusBadRequest
	default:
		// Generation and other backend failures are visible but non-fatal.
		return http.StatusBadGateway
	}
}
