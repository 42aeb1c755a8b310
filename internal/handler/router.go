package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatHandler "github.com/antoniopedrola/synthetic-research/internal/handler/chat"
	evidenceHandler "github.com/antoniopedrola/synthetic-research/internal/handler/evidence"
	personaHandler "github.com/antoniopedrola/synthetic-research/internal/handler/persona"
	streamHandler "github.com/antoniopedrola/synthetic-research/internal/handler/stream"
	wsHandler "github.com/antoniopedrola/synthetic-research/internal/handler/ws"
	personaModel "github.com/antoniopedrola/synthetic-research/internal/model/persona"
	aiService "github.com/antoniopedrola/synthetic-research/internal/service/ai"
	chatService "github.com/antoniopedrola/synthetic-research/internal/service/chat"
	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, aiSvc *aiService.Service, retriever chatService.Retriever, ingestSvc *ingest.Service, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	var streaming *streamHandler.Handler
	var sockets *wsHandler.Handler
	if aiSvc != nil {
		streaming = streamHandler.New(aiSvc, chatSvc, retriever, log)
		sockets = wsHandler.New(aiSvc, chatSvc, retriever, log)
	}

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)
		chatHandler.New(chatSvc).RegisterRoutes(api)
		evidenceHandler.New(ingestSvc).RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			question := r.URL.Query().Get("message")

			if streaming == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if question == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streaming.HandleStreamRequest(r.Context(), w, sessionID, question); err != nil {
				log.Warn("stream request failed",
					zap.String("session", sessionID),
					zap.Error(err))
			}
		})

		if sockets != nil {
			sockets.RegisterRoutes(api)
		}
	})

	return r
}
