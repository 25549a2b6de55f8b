package chatbot

import (
	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"
)

const (
	historyLimit      = 10
	historyPreviewLen = 50
	sessionIDDisplay  = 20
	ellipsis          = "..."
)

// View receives every display change the ChatBot makes. Calls are made while the
// ChatBot holds its lock, so implementations must not call back into it.
type View interface {
	SetConnected(connected bool)
	SetTyping(typing bool)
	ClearMessages()
	AppendMessage(msg session.Message, showTimestamp bool)
	ShowHistory(entries []HistoryEntry)
	ShowSessionInfo(info SessionDisplay)
	ShowSettings(s settings.Settings)
	Notice(text string)
}

// HistoryEntry is one line of the history panel
type HistoryEntry struct {
	Role    string
	Preview string
}

// SessionDisplay is the session metadata as shown to the user
type SessionDisplay struct {
	ID           string
	MessageCount int
}

// truncate cuts s to n runes and marks the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + ellipsis
}

type nopView struct{}

func (nopView) SetConnected(bool) {}
func (nopView) SetTyping(bool) {}
func (nopView) ClearMessages() {}
func (nopView) AppendMessage(session.Message, bool) {}
func (nopView) ShowHistory([]HistoryEntry) {}
func (nopView) ShowSessionInfo(SessionDisplay) {}
func (nopView) ShowSettings(settings.Settings) {}
func (nopView) Notice(string) {}
