package backend

// CreateSessionRequest represents the request body for POST /session/create
type CreateSessionRequest struct {
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// CreateSessionResponse represents the response from POST /session/create
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// ChatRequest represents the request body for POST /chat
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatResponse represents the response from POST /chat
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
}

// HistoryMessage is one entry of the service's canonical message list
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse represents the response from GET /history/{session_id}
type HistoryResponse struct {
	SessionID string           `json:"session_id,omitempty"`
	Messages  []HistoryMessage `json:"messages"`
}

// SessionInfo represents the response from GET /session/{session_id}
type SessionInfo struct {
	SessionID     string `json:"session_id"`
	MessagesCount *int   `json:"messages_count,omitempty"`
}

// Count returns the reported message count, zero when the service omitted it
func (s SessionInfo) Count() int {
	if s.MessagesCount == nil {
		return 0
	}
	return *s.MessagesCount
}
