package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

func writePersonaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing persona file: %v", err)
	}
	return path
}

func TestLoadFileNormalizesBothSchemas(t *testing.T) {
	path := writePersonaFile(t, `[
		{
			"name": "Ha-eun Park",
			"market": "korea",
			"age": 31,
			"occupation": "Nurse",
			"household": "Shares a flat in Busan",
			"devices": ["Coupang app"],
			"routines": ["Orders groceries at night"],
			"language_style": "direct, warm"
		},
		{
			"id": "tomasz",
			"name": "Tomasz Wozniak",
			"segment": "poland",
			"age": 52,
			"occupation": "Electrician",
			"bio": "Lives outside Gdansk, shops online mostly for tools.",
			"pain_points": ["Delivery to rural areas"],
			"goals": ["Avoid counterfeit tools"]
		}
	]`)

	personas, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile err: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(personas))
	}

	lifestyle := personas[0]
	if !lifestyle.Lifestyle {
		t.Fatal("expected first persona to be lifestyle-schema")
	}
	if lifestyle.ID != "ha-eun-park" {
		t.Fatalf("expected slugified ID, got %q", lifestyle.ID)
	}
	if lifestyle.Segment != "korea" {
		t.Fatalf("market field not resolved to segment, got %q", lifestyle.Segment)
	}

	legacy := personas[1]
	if legacy.Lifestyle {
		t.Fatal("expected second persona to be legacy-schema")
	}
	if legacy.ID != "tomasz" {
		t.Fatalf("explicit ID overridden, got %q", legacy.ID)
	}
	if len(legacy.PainPoints) != 1 || len(legacy.Goals) != 1 {
		t.Fatal("legacy attributes not carried over")
	}
}

func TestLoadFileRejectsUnknownSegment(t *testing.T) {
	path := writePersonaFile(t, `[{"name": "Nobody", "segment": "mars"}]`)

	_, err := LoadFile(path)
	if !errors.Is(err, evidence.ErrInvalidSegment) {
		t.Fatalf("expected invalid segment error, got %v", err)
	}
}

func TestLoadFileRejectsMissingName(t *testing.T) {
	path := writePersonaFile(t, `[{"segment": "turkey"}]`)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestSeedSegmentsAreValid(t *testing.T) {
	for _, p := range Seed() {
		if err := evidence.ValidateSegment(p.Segment); err != nil {
			t.Fatalf("seed persona %s has invalid segment: %v", p.ID, err)
		}
	}
}
