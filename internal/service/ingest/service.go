package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/antoniopedrola/synthetic-research/internal/embedding"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore"
)

// Record is one evidence item as supplied by callers, before embedding.
type Record struct {
	Segment    string            `json:"segment" yaml:"segment"`
	Market     string            `json:"market,omitempty" yaml:"market,omitempty"`
	SourceType string            `json:"source_type" yaml:"source_type"`
	Content    string            `json:"content" yaml:"content"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	SourceDate string            `json:"source_date,omitempty" yaml:"source_date,omitempty"`
}

// segment resolves the category label; older evidence files call it "market".
func (r Record) segment() string {
	if r.Segment != "" {
		return r.Segment
	}
	return r.Market
}

// ItemError records why a single batch item was skipped.
type ItemError struct {
	Index int    `json:"index"`
	Err   string `json:"error"`
}

// Report tallies a bulk ingestion run.
type Report struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Skipped   int         `json:"skipped"`
	Failures  []ItemError `json:"failures,omitempty"`
}

// Service validates, embeds and inserts research evidence.
type Service struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	log      *zap.Logger
}

// NewService wires the ingestion pipeline.
func NewService(embedder embedding.Embedder, store vectorstore.Store, log *zap.Logger) *Service {
	return &Service{embedder: embedder, store: store, log: log}
}

// IngestItem validates one record, embeds its content and inserts it.
// Validation failures happen before any side effect.
func (s *Service) IngestItem(ctx context.Context, rec Record) error {
	item := evidence.Item{
		Segment:    rec.segment(),
		SourceType: rec.SourceType,
		Content:    rec.Content,
		Metadata:   rec.Metadata,
		SourceDate: rec.SourceDate,
		CreatedAt:  time.Now().UTC(),
	}
	if item.SourceDate == "" {
		item.SourceDate = time.Now().UTC().Format("2006-01-02")
	}
	if err := item.Validate(); err != nil {
		return err
	}

	vector, err := s.embedder.Embed(ctx, item.Content)
	if err != nil {
		return fmt.Errorf("embedding content: %w", err)
	}
	item.Embedding = vector

	if err := s.store.Insert(ctx, item); err != nil {
		return fmt.Errorf("inserting evidence: %w", err)
	}

	s.log.Info("evidence ingested",
		zap.String("segment", item.Segment),
		zap.String("source_type", item.SourceType))
	return nil
}

// IngestBatch processes records one by one. A failing item is skipped and
// tallied; it never aborts the rest of the batch.
func (s *Service) IngestBatch(ctx context.Context, records []Record) Report {
	report := Report{Total: len(records)}
	for i, rec := range records {
		if err := s.IngestItem(ctx, rec); err != nil {
			s.log.Warn("skipping evidence item",
				zap.Int("index", i),
				zap.Error(err))
			report.Skipped++
			report.Failures = append(report.Failures, ItemError{Index: i, Err: err.Error()})
			continue
		}
		report.Succeeded++
	}
	return report
}

// DecodeFile reads a batch of records from a JSON or YAML file, chosen by
// extension.
func DecodeFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return records, nil
}
