package domain

import "time"

// Role is a character that can join scenes. Tags drive expertise matching.
type Role struct {
	ID           int64
	Name         string
	Tags         []string
	SystemPrompt string
	Background   string
	// Model overrides the server default when set; a participant's
	// personality config can override it again per session.
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
