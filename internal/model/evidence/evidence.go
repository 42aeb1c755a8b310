package evidence

import (
	"errors"
	"fmt"
	"time"
)

// Segments and source types form closed sets; inserts are validated against
// them before anything reaches the vector store.
const (
	SegmentKorea  = "korea"
	SegmentPoland = "poland"
	SegmentTurkey = "turkey"
	SegmentGlobal = "global"
)

const (
	SourceInterview  = "interview_transcript"
	SourceSocial     = "social_listening"
	SourceSearch     = "search_query"
	SourceQuote      = "user_quote"
	SourceBehavioral = "behavioral_data"
)

var (
	ErrInvalidSegment    = errors.New("invalid segment")
	ErrInvalidSourceType = errors.New("invalid source type")
	ErrEmptyContent      = errors.New("content is required")
)

var validSegments = map[string]struct{}{
	SegmentKorea:  {},
	SegmentPoland: {},
	SegmentTurkey: {},
	SegmentGlobal: {},
}

var validSourceTypes = map[string]struct{}{
	SourceInterview:  {},
	SourceSocial:     {},
	SourceSearch:     {},
	SourceQuote:      {},
	SourceBehavioral: {},
}

// Item is a single piece of research data with a precomputed embedding.
// Content is immutable once embedded; changing it requires re-embedding.
type Item struct {
	ID         string            `json:"id"`
	Segment    string            `json:"segment"`
	SourceType string            `json:"sourceType"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	SourceDate string            `json:"sourceDate,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`

	// Score is the similarity reported by the vector store. Matched is false
	// for items that came from the unscored fallback fetch rather than the
	// similarity search.
	Score   float64 `json:"score,omitempty"`
	Matched bool    `json:"matched"`
}

// Validate checks the closed enumerations and required fields.
func (it Item) Validate() error {
	if err := ValidateSegment(it.Segment); err != nil {
		return err
	}
	if err := ValidateSourceType(it.SourceType); err != nil {
		return err
	}
	if it.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

func ValidateSegment(segment string) error {
	if _, ok := validSegments[segment]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidSegment, segment)
	}
	return nil
}

func ValidateSourceType(sourceType string) error {
	if _, ok := validSourceTypes[sourceType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	return nil
}

// Segments returns the known segment labels.
func Segments() []string {
	return []string{SegmentKorea, SegmentPoland, SegmentTurkey, SegmentGlobal}
}

// SourceTypes returns the known source type labels.
func SourceTypes() []string {
	return []string{SourceInterview, SourceSocial, SourceSearch, SourceQuote, SourceBehavioral}
}
