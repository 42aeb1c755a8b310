package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/config"
	"github.com/antoniopedrola/synthetic-research/internal/embedding"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore"
)

// Service retrieves research evidence for a question. Similarity search runs
// against the persona's own segment and the shared global segment; when both
// come back empty (or the search itself fails) an unscored fallback fetch
// supplies loose background evidence instead.
type Service struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	cfg      config.RetrievalConfig
	log      *zap.Logger
}

// NewService wires a retriever over the given embedder and vector store.
func NewService(embedder embedding.Embedder, store vectorstore.Store, cfg config.RetrievalConfig, log *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Retrieve embeds the query and runs a threshold-filtered similarity search
// restricted to segment. Results are ordered by descending similarity; the
// ordering is delegated to the store.
func (s *Service) Retrieve(ctx context.Context, query, segment string, limit int) ([]evidence.Item, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, vector, segment, s.cfg.Threshold, limit)
}

// ForPersona runs the standard two-pass retrieval for one question: the
// persona's segment first, then the global segment, concatenated in that
// order. Retrieval failures are never fatal; they degrade to the fallback
// fetch and, past that, to no evidence at all.
func (s *Service) ForPersona(ctx context.Context, query, personaSegment string) []evidence.Item {
	var merged []evidence.Item
	searchFailed := false

	local, err := s.Retrieve(ctx, query, personaSegment, s.cfg.SegmentLimit)
	if err != nil {
		s.log.Warn("segment retrieval failed",
			zap.String("segment", personaSegment),
			zap.Error(err))
		searchFailed = true
	}
	merged = append(merged, local...)

	if personaSegment != evidence.SegmentGlobal {
		global, err := s.Retrieve(ctx, query, evidence.SegmentGlobal, s.cfg.GlobalLimit)
		if err != nil {
			s.log.Warn("global retrieval failed", zap.Error(err))
			searchFailed = true
		}
		merged = append(merged, global...)
	}

	if len(merged) > 0 {
		return merged
	}

	if searchFailed {
		s.log.Info("similarity search unavailable, using fallback fetch",
			zap.String("segment", personaSegment))
	}
	return s.fallback(ctx, personaSegment)
}

// fallback fetches any stored evidence for the segment, capped at the
// configured count. Items are explicitly not semantically matched.
func (s *Service) fallback(ctx context.Context, segment string) []evidence.Item {
	items, err := s.store.FetchBySegment(ctx, segment, s.cfg.FallbackLimit)
	if err != nil {
		s.log.Warn("fallback fetch failed",
			zap.String("segment", segment),
			zap.Error(err))
		return nil
	}
	for i := range items {
		items[i].Matched = false
		items[i].Score = 0
	}
	if len(items) > 0 {
		s.log.Info("fallback evidence used",
			zap.String("segment", segment),
			zap.Int("count", len(items)))
	}
	return items
}
