package chatbot

import (
	"fmt"
	"io"

	"ChatPanel/internal/format"
)

// ExportHTML writes the transcript as an HTML fragment, one block per message, with
// message bodies passed through format.Markup
func (cb *ChatBot) ExportHTML(w io.Writer) error {
	cb.mu.Lock()
	messages := append(cb.transcript[:0:0], cb.transcript...)
	showTimestamps := cb.saved.ShowTimestamps
	cb.mu.Unlock()

	if _, err := io.WriteString(w, "<div class=\"chat-messages\">\n"); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	for _, msg := range messages {
		timestamp := ""
		if showTimestamps {
			timestamp = fmt.Sprintf("<div class=\"message-timestamp\">%s</div>", msg.Timestamp.Format("15:04:05"))
		}
		_, err := fmt.Fprintf(w,
			"<div class=\"message %s-message\"><div class=\"message-content\">%s%s</div></div>\n",
			msg.Role, format.Markup(msg.Content), timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
	}
	if _, err := io.WriteString(w, "</div>\n"); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
