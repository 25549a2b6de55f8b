package session

import "time"

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Message represents a single transcript entry
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a chat session issued by the remote service
type Session struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"start_time"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	MessageCount int       `json:"messages_count"`
	Messages     []Message `json:"messages"`
}

// NewUserMessage creates a user-role message stamped at t
func NewUserMessage(content string, t time.Time) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: t}
}

// NewBotMessage creates a bot-role message stamped at t
func NewBotMessage(content string, t time.Time) Message {
	return Message{Role: RoleBot, Content: content, Timestamp: t}
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}
