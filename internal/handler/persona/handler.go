package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	personaModel "github.com/antoniopedrola/synthetic-research/internal/model/persona"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// Handler serves the read-only persona catalog.
type Handler struct {
	store personaModel.Store
}

// New creates the persona handler.
func New(store personaModel.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/{personaID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personaID")
	p, ok := h.store.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
