// Command evidencectl adds research evidence to the vector store, embedding
// each item on the way in.
//
// Usage:
//
//	evidencectl -file evidence.json
//	evidencectl -file evidence.yaml
//	evidencectl -text "..." -segment korea -type interview_transcript
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/antoniopedrola/synthetic-research/internal/config"
	openaiEmbed "github.com/antoniopedrola/synthetic-research/internal/embedding/openai"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/observability"
	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore/qdrant"
)

func main() {
	filePath := flag.String("file", "", "JSON or YAML file with bulk evidence records")
	text := flag.String("text", "", "evidence text content (single item mode)")
	segment := flag.String("segment", "", "segment: "+strings.Join(evidence.Segments(), ", "))
	sourceType := flag.String("type", "", "source type: "+strings.Join(evidence.SourceTypes(), ", "))
	metadata := flag.String("metadata", "", "metadata as a JSON object (single item mode)")
	flag.Parse()

	if err := run(*filePath, *text, *segment, *sourceType, *metadata); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(filePath, text, segment, sourceType, metadata string) error {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.VectorDB.URL == "" {
		return fmt.Errorf("QDRANT_URL must be set")
	}

	log, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := qdrant.NewStore(qdrant.Config{
		URL:        cfg.VectorDB.URL,
		APIKey:     cfg.VectorDB.APIKey,
		Collection: cfg.VectorDB.Collection,
	})
	if err != nil {
		return err
	}
	if err := store.EnsureCollection(ctx, cfg.Embedder.Dimension); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	embedder, err := openaiEmbed.NewClient(openaiEmbed.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKey:    cfg.Embedder.APIKey,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   cfg.Embedder.Timeout,
	})
	if err != nil {
		return err
	}

	svc := ingest.NewService(embedder, store, log)

	switch {
	case filePath != "":
		records, err := ingest.DecodeFile(filePath)
		if err != nil {
			return err
		}
		report := svc.IngestBatch(ctx, records)
		fmt.Printf("done: %d/%d added, %d skipped\n", report.Succeeded, report.Total, report.Skipped)
		for _, failure := range report.Failures {
			fmt.Printf("  item %d skipped: %s\n", failure.Index, failure.Err)
		}
		return nil

	case text != "" && segment != "" && sourceType != "":
		rec := ingest.Record{
			Segment:    segment,
			SourceType: sourceType,
			Content:    text,
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
				return fmt.Errorf("parsing -metadata: %w", err)
			}
		}
		if err := svc.IngestItem(ctx, rec); err != nil {
			return err
		}
		fmt.Println("evidence added")
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("must provide either -file or (-text -segment -type)")
	}
}
