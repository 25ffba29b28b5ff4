package model

import "time"

// Role is who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a Conversation's append-only log.
type Turn struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Role      Role           `json:"role"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DefaultConversationRetention bounds how many recent turns are kept for
// prompt inclusion (§3 Conversation).
const DefaultConversationRetention = 20
