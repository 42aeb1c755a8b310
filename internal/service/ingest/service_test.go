package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore/memory"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	return []float32{1, 0, 0}, nil
}

func (c *countingEmbedder) Dimension() int { return 3 }

func TestIngestItemEmbedsAndInserts(t *testing.T) {
	embedder := &countingEmbedder{}
	store := memory.NewStore()
	svc := ingest.NewService(embedder, store, zap.NewNop())

	err := svc.IngestItem(context.Background(), ingest.Record{
		Segment:    "korea",
		SourceType: "user_quote",
		Content:    "Rocket delivery changed how I shop.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, store.Len())
}

func TestIngestItemResolvesMarketAlias(t *testing.T) {
	store := memory.NewStore()
	svc := ingest.NewService(&countingEmbedder{}, store, zap.NewNop())

	err := svc.IngestItem(context.Background(), ingest.Record{
		Market:     "poland",
		SourceType: "social_listening",
		Content:    "Allegro reviews decide it for me.",
	})
	require.NoError(t, err)

	items, err := store.FetchBySegment(context.Background(), "poland", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].SourceDate, "missing source date should default")
}

func TestIngestItemValidationBeforeSideEffects(t *testing.T) {
	embedder := &countingEmbedder{}
	store := memory.NewStore()
	svc := ingest.NewService(embedder, store, zap.NewNop())

	err := svc.IngestItem(context.Background(), ingest.Record{
		Segment:    "atlantis",
		SourceType: "user_quote",
		Content:    "should never be stored",
	})
	require.Error(t, err)
	assert.Zero(t, embedder.calls, "invalid item must not be embedded")
	assert.Zero(t, store.Len(), "invalid item must not be inserted")
}

func TestIngestBatchSkipsInvalidItems(t *testing.T) {
	store := memory.NewStore()
	svc := ingest.NewService(&countingEmbedder{}, store, zap.NewNop())

	records := []ingest.Record{
		{Segment: "korea", SourceType: "user_quote", Content: "one"},
		{Segment: "poland", SourceType: "interview_transcript", Content: "two"},
		{Market: "atlantis", SourceType: "user_quote", Content: "bad segment"},
		{Segment: "turkey", SourceType: "behavioral_data", Content: "four"},
		{Segment: "global", SourceType: "search_query", Content: "five"},
	}

	report := svc.IngestBatch(context.Background(), records)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Failures[0].Index)
	assert.Equal(t, 4, store.Len(), "valid items around the failure must still land")
}

func TestDecodeFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.json")
	content := `[
		{"segment": "korea", "source_type": "user_quote", "content": "json item", "metadata": {"campaign": "q3"}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := ingest.DecodeFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "korea", records[0].Segment)
	assert.Equal(t, "q3", records[0].Metadata["campaign"])
}

func TestDecodeFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.yaml")
	content := `
- segment: turkey
  source_type: interview_transcript
  content: yaml item
  source_date: "2026-03-01"
- market: global
  source_type: search_query
  content: second yaml item
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := ingest.DecodeFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "turkey", records[0].Segment)
	assert.Equal(t, "2026-03-01", records[0].SourceDate)
	assert.Equal(t, "global", records[1].Market)
}
