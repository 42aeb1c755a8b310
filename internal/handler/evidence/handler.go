package evidence

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	evidenceModel "github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/pkg/utils"
)

// Handler exposes evidence ingestion over HTTP.
type Handler struct {
	ingestSvc *ingest.Service
}

// New creates the evidence handler.
func New(ingestSvc *ingest.Service) *Handler {
	return &Handler{ingestSvc: ingestSvc}
}

// RegisterRoutes registers evidence routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/evidence", h.handleInsert)
	r.Post("/evidence/bulk", h.handleBulk)
}

func (h *Handler) handleInsert(w http.ResponseWriter, r *http.Request) {
	var rec ingest.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ingestSvc.IngestItem(r.Context(), rec); err != nil {
		status := http.StatusBadGateway
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// handleBulk ingests a batch; individual failures are tallied, never fatal.
func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	var records []ingest.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body: expected an array of evidence records")
		return
	}

	report := h.ingestSvc.IngestBatch(r.Context(), records)
	utils.RespondJSON(w, http.StatusOK, report)
}

func isValidationError(err error) bool {
	return errors.Is(err, evidenceModel.ErrInvalidSegment) ||
		errors.Is(err, evidenceModel.ErrInvalidSourceType) ||
		errors.Is(err, evidenceModel.ErrEmptyContent)
}
