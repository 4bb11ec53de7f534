package sessionmodel

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Session struct {
	Id        string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message ordering is creation-time ascending within a session.
type Message struct {
	Id        string    `json:"id"`
	SessionId string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the rolling conversation summary, at most one per session.
type Summary struct {
	SessionId string    `json:"session_id"`
	Text      string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}
