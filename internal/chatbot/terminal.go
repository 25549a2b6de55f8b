package chatbot

import (
	"fmt"
	"io"
	"strings"

	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type terminalStyles struct {
	userLabel    lipgloss.Style
	botLabel     lipgloss.Style
	dim          lipgloss.Style
	connected    lipgloss.Style
	disconnected lipgloss.Style
	notice       lipgloss.Style
	header       lipgloss.Style
}

func newTerminalStyles(r *lipgloss.Renderer) terminalStyles {
	return terminalStyles{
		userLabel:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		botLabel:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		dim:          r.NewStyle().Foreground(lipgloss.Color("8")),
		connected:    r.NewStyle().Foreground(lipgloss.Color("10")),
		disconnected: r.NewStyle().Foreground(lipgloss.Color("9")),
		notice:       r.NewStyle().Foreground(lipgloss.Color("11")),
		header:       r.NewStyle().Bold(true).Underline(true),
	}
}

// TerminalView renders the chat onto a terminal
type TerminalView struct {
	out      io.Writer
	styles   terminalStyles
	renderer *glamour.TermRenderer

	connected   *bool
	typingShown bool
}

// NewTerminalView creates a TerminalView writing to out. With render set, bot replies
// are rendered as markdown.
func NewTerminalView(out io.Writer, render bool) (*TerminalView, error) {
	v := &TerminalView{
		out:    out,
		styles: newTerminalStyles(lipgloss.NewRenderer(out)),
	}
	if render {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		v.renderer = r
	}
	return v, nil
}

func (v *TerminalView) clearTyping() {
	if v.typingShown {
		fmt.Fprint(v.out, "\r\033[K")
		v.typingShown = false
	}
}

// SetConnected prints the connectivity state when it changes
func (v *TerminalView) SetConnected(connected bool) {
	if v.connected != nil && *v.connected == connected {
		return
	}
	v.connected = &connected
	v.clearTyping()
	style := v.styles.disconnected
	if connected {
		style = v.styles.connected
	}
	fmt.Fprintln(v.out, style.Render(ConnectionLabel(connected)))
}

// ConnectionLabel is the text of the connectivity indicator
func ConnectionLabel(connected bool) string {
	if connected {
		return "● Connected"
	}
	return "● Disconnected"
}

// SetTyping shows or clears the typing line
func (v *TerminalView) SetTyping(typing bool) {
	if !typing {
		v.clearTyping()
		return
	}
	fmt.Fprint(v.out, v.styles.dim.Render("Bot is typing..."))
	v.typingShown = true
}

// ClearMessages prints a separator; earlier output stays in the scrollback
func (v *TerminalView) ClearMessages() {
	v.clearTyping()
	fmt.Fprintln(v.out, v.styles.dim.Render(strings.Repeat("─", 50)))
}

// AppendMessage prints a message, rendering bot replies as markdown when enabled
func (v *TerminalView) AppendMessage(msg session.Message, showTimestamp bool) {
	v.clearTyping()

	label := v.styles.botLabel.Render("Bot:")
	if msg.IsUser() {
		label = v.styles.userLabel.Render("You:")
	}
	if showTimestamp {
		label = v.styles.dim.Render(msg.Timestamp.Format("15:04:05")) + " " + label
	}

	content := msg.Content
	if !msg.IsUser() && v.renderer != nil {
		if rendered, err := v.renderer.Render(content); err == nil {
			content = strings.Trim(rendered, "\n")
		}
	}
	fmt.Fprintf(v.out, "%s %s\n\n", label, content)
}

// ShowHistory prints the history panel
func (v *TerminalView) ShowHistory(entries []HistoryEntry) {
	v.clearTyping()
	fmt.Fprintln(v.out, v.styles.header.Render("Recent history"))
	if len(entries) == 0 {
		fmt.Fprintln(v.out, v.styles.dim.Render("  No messages yet"))
		return
	}
	for _, e := range entries {
		icon := "🤖"
		if e.Role == session.RoleUser {
			icon = "👤"
		}
		fmt.Fprintf(v.out, "  %s %s %s\n", icon, v.styles.dim.Render(e.Role), e.Preview)
	}
}

// ShowSessionInfo prints the session id and message count
func (v *TerminalView) ShowSessionInfo(info SessionDisplay) {
	v.clearTyping()
	fmt.Fprintf(v.out, "%s %s  %s %d\n",
		v.styles.dim.Render("Session:"), info.ID,
		v.styles.dim.Render("Messages:"), info.MessageCount)
}

// ShowSettings prints the pending settings
func (v *TerminalView) ShowSettings(s settings.Settings) {
	v.clearTyping()
	fmt.Fprintln(v.out, v.styles.header.Render("Settings (unsaved)"))
	for _, key := range settings.Keys() {
		value, _ := s.Get(key)
		fmt.Fprintf(v.out, "  %-15s %s\n", key, value)
	}
}

// Notice prints a highlighted one-line message
func (v *TerminalView) Notice(text string) {
	v.clearTyping()
	fmt.Fprintln(v.out, v.styles.notice.Render(text))
}
