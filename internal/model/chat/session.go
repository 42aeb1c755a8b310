package chat

import "time"

// Session captures a transient conversation bound to one persona. Picking a
// different persona starts a new session; history never crosses sessions.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	CreatedAt time.Time `json:"createdAt"`
}
