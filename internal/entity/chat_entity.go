package entity

import "time"

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// ChatMessage is a single turn in a session's conversation. History is
// append-only; insertion order is the conversation order.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	FileName  string    `json:"file_name,omitempty"`
	IsImage   bool      `json:"is_image_response,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession holds one browser session's identity and conversation.
// It lives in memory only; a process restart drops it.
type ChatSession struct {
	ID        string        `json:"id"`
	Identity  Identity      `json:"identity"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages"`
}
