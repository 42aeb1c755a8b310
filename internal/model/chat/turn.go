package chat

import (
	"time"

	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
)

// Turn is one question/answer exchange together with the evidence the answer
// was grounded on. Turns are append-only and stored in chronological order.
type Turn struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Evidence  []evidence.Item `json:"evidence,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
