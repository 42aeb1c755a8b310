package vectorstore

import (
	"context"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

// Store persists evidence vectors and supports segment-filtered similarity
// search. The store owns ranking: Search results come back ordered by
// descending similarity.
type Store interface {
	// EnsureCollection creates the backing collection for the given vector
	// dimension if it does not exist yet.
	EnsureCollection(ctx context.Context, dimension int) error

	// Search returns up to limit items in segment whose cosine similarity to
	// vector exceeds threshold, best match first. Returned items have Matched
	// set and carry their Score.
	Search(ctx context.Context, vector []float32, segment string, threshold float64, limit int) ([]evidence.Item, error)

	// FetchBySegment returns up to limit items for a segment without any
	// similarity ranking. This is the fallback path; returned items are
	// explicitly not semantically matched.
	FetchBySegment(ctx context.Context, segment string, limit int) ([]evidence.Item, error)

	// Insert stores a single embedded evidence item.
	Insert(ctx context.Context, item evidence.Item) error
}
