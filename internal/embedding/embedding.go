package embedding

import "context"

// Embedder converts free text into a fixed-length numeric vector. The model
// behind an implementation is deterministic: re-embedding identical content
// yields an identical vector.
type Embedder interface {
	// Embed returns the embedding for text. Empty text is forwarded to the
	// model unchanged; whatever vector it returns is used as-is.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the vector length produced by the configured model.
	Dimension() int
}
