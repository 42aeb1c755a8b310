package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStore builds a Store from the given configuration.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant URL is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// returns 200 for an existing collection with the same schema.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Search performs a segment-filtered nearest-neighbor query. Qdrant applies
// the score threshold server-side and returns hits ordered by similarity.
func (s *Store) Search(ctx context.Context, vector []float32, segment string, threshold float64, limit int) ([]evidence.Item, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": threshold,
		"with_payload":    true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "segment", "match": map[string]any{"value": segment}},
			},
		},
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}

	items := make([]evidence.Item, 0, len(resp.Result))
	for _, r := range resp.Result {
		item := itemFromPayload(r.Payload)
		item.ID = fmt.Sprint(r.ID)
		item.Score = r.Score
		item.Matched = true
		items = append(items, item)
	}
	return items, nil
}

// FetchBySegment scrolls the collection for any items in a segment, without
// similarity ranking.
func (s *Store) FetchBySegment(ctx context.Context, segment string, limit int) ([]evidence.Item, error) {
	if limit <= 0 {
		limit = 3
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "segment", "match": map[string]any{"value": segment}},
			},
		},
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}

	items := make([]evidence.Item, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		item := itemFromPayload(p.Payload)
		item.ID = fmt.Sprint(p.ID)
		items = append(items, item)
	}
	return items, nil
}

// Insert upserts a single embedded evidence item as one point.
func (s *Store) Insert(ctx context.Context, item evidence.Item) error {
	if len(item.Embedding) == 0 {
		return errors.New("item has no embedding")
	}
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	payload := map[string]any{
		"segment":     item.Segment,
		"source_type": item.SourceType,
		"content":     item.Content,
		"source_date": item.SourceDate,
		"created_at":  item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(item.Metadata) > 0 {
		payload["metadata"] = item.Metadata
	}
	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      id,
				"vector":  item.Embedding,
				"payload": payload,
			},
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func itemFromPayload(payload map[string]any) evidence.Item {
	item := evidence.Item{}
	if v, ok := payload["segment"].(string); ok {
		item.Segment = v
	}
	if v, ok := payload["source_type"].(string); ok {
		item.SourceType = v
	}
	if v, ok := payload["content"].(string); ok {
		item.Content = v
	}
	if v, ok := payload["source_date"].(string); ok {
		item.SourceDate = v
	}
	if v, ok := payload["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			item.CreatedAt = ts
		}
	}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		meta := make(map[string]string, len(raw))
		for k, v := range raw {
			if str, ok := v.(string); ok {
				meta[k] = str
			}
		}
		if len(meta) > 0 {
			item.Metadata = meta
		}
	}
	return item
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
