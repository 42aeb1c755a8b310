package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

// Store is an in-memory evidence store with brute-force cosine search. It
// backs local development and tests; production deployments use Qdrant.
type Store struct {
	mu        sync.RWMutex
	dimension int
	items     []evidence.Item
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// EnsureCollection records the expected vector dimension.
func (s *Store) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	return nil
}

// Search ranks stored items in segment by cosine similarity to vector and
// returns those above threshold, best first.
func (s *Store) Search(_ context.Context, vector []float32, segment string, threshold float64, limit int) ([]evidence.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d does not match collection dimension %d", len(vector), s.dimension)
	}
	if limit <= 0 {
		limit = 5
	}

	matches := make([]evidence.Item, 0, limit)
	for _, item := range s.items {
		if item.Segment != segment {
			continue
		}
		score := cosine(vector, item.Embedding)
		if score <= threshold {
			continue
		}
		hit := item
		hit.Score = score
		hit.Matched = true
		matches = append(matches, hit)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FetchBySegment returns up to limit items for a segment in insertion order.
func (s *Store) FetchBySegment(_ context.Context, segment string, limit int) ([]evidence.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 3
	}
	out := make([]evidence.Item, 0, limit)
	for _, item := range s.items {
		if item.Segment != segment {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Insert stores a single embedded item.
func (s *Store) Insert(_ context.Context, item evidence.Item) error {
	if len(item.Embedding) == 0 {
		return fmt.Errorf("item has no embedding")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension > 0 && len(item.Embedding) != s.dimension {
		return fmt.Errorf("item dimension %d does not match collection dimension %d", len(item.Embedding), s.dimension)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items = append(s.items, item)
	return nil
}

// Len reports the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
