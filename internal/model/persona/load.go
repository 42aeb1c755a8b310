package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

// record mirrors the on-disk persona schema. Both the legacy fields
// (age/occupation/bio/pain_points/goals) and the lifestyle fields
// (household/devices/routines/tensions/language_style) may appear; the two
// variants are collapsed into the normalized Persona here, not at render time.
type record struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Market     string   `json:"market"`
	Segment    string   `json:"segment"`
	Age        int      `json:"age"`
	Occupation string   `json:"occupation"`
	Bio        string   `json:"bio"`
	PainPoints []string `json:"pain_points"`
	Goals      []string `json:"goals"`

	Household     string   `json:"household"`
	Devices       []string `json:"devices"`
	Routines      []string `json:"routines"`
	Tensions      []string `json:"tensions"`
	LanguageStyle string   `json:"language_style"`
}

// LoadFile reads personas from a JSON array file and normalizes each record.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding persona file %s: %w", path, err)
	}

	personas := make([]Persona, 0, len(records))
	for i, rec := range records {
		p, err := normalize(rec)
		if err != nil {
			return nil, fmt.Errorf("persona %d (%s): %w", i, rec.Name, err)
		}
		personas = append(personas, p)
	}
	return personas, nil
}

func normalize(rec record) (Persona, error) {
	segment := rec.Segment
	if segment == "" {
		// Older persona files call the field "market".
		segment = rec.Market
	}
	if err := evidence.ValidateSegment(segment); err != nil {
		return Persona{}, err
	}
	if rec.Name == "" {
		return Persona{}, fmt.Errorf("name is required")
	}

	id := rec.ID
	if id == "" {
		id = slugify(rec.Name)
	}

	p := Persona{
		ID:            id,
		Name:          rec.Name,
		Segment:       segment,
		Age:           rec.Age,
		Occupation:    rec.Occupation,
		Bio:           rec.Bio,
		PainPoints:    rec.PainPoints,
		Goals:         rec.Goals,
		Household:     rec.Household,
		Devices:       rec.Devices,
		Routines:      rec.Routines,
		Tensions:      rec.Tensions,
		LanguageStyle: rec.LanguageStyle,
	}
	p.Lifestyle = rec.Household != "" || rec.LanguageStyle != "" ||
		len(rec.Devices) > 0 || len(rec.Routines) > 0 || len(rec.Tensions) > 0
	return p, nil
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
