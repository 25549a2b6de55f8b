package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"ChatPanel/internal/settings"
)

// handleCommand handles special commands. It reports whether the loop should exit.
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string, scanner *bufio.Scanner) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new-session":
		if err := cb.NewSession(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(cb.out, "Started new session:", cb.SessionID())
		return false, nil

	case "/clear":
		fmt.Fprint(cb.out, "Are you sure you want to clear the chat? This will start a new session. [y/N] ")
		if !scanner.Scan() {
			return true, nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			return false, nil
		}
		return false, cb.NewSession(ctx)

	case "/history":
		if cb.SessionID() == "" {
			return false, ErrNoSession
		}
		return false, cb.RefreshHistory(ctx)

	case "/info":
		if cb.SessionID() == "" {
			return false, ErrNoSession
		}
		return false, cb.RefreshSessionMetadata(ctx)

	case "/status":
		fmt.Fprintln(cb.out, ConnectionLabel(cb.CheckConnectivity(ctx)))
		return false, nil

	case "/settings":
		cb.printSettings()
		return false, nil

	case "/set":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /set <key> <value> (keys: %s)", strings.Join(settings.Keys(), ", "))
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cmd), parts[0]))
		key, value, _ := strings.Cut(rest, " ")
		return false, cb.SetPending(key, strings.TrimSpace(value))

	case "/save":
		return false, cb.SaveSettings(ctx)

	case "/reset":
		cb.ResetSettings()
		fmt.Fprintln(cb.out, "Settings reset to defaults. Use /save to keep them.")
		return false, nil

	case "/export":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /export <file>")
		}
		f, err := os.Create(parts[1])
		if err != nil {
			return false, fmt.Errorf("failed to create export file: %w", err)
		}
		if err := cb.ExportHTML(f); err != nil {
			f.Close()
			return false, err
		}
		if err := f.Close(); err != nil {
			return false, fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Fprintln(cb.out, "Transcript exported to", parts[1])
		return false, nil

	case "/help":
		fmt.Fprintln(cb.out, "Available commands:")
		fmt.Fprintln(cb.out, "  /quit, /exit         - Exit the chat")
		fmt.Fprintln(cb.out, "  /new-session         - Start a new chat session")
		fmt.Fprintln(cb.out, "  /clear               - Clear the chat (starts a new session)")
		fmt.Fprintln(cb.out, "  /history             - Show recent history for this session")
		fmt.Fprintln(cb.out, "  /info                - Show session id and message count")
		fmt.Fprintln(cb.out, "  /status              - Check the connection to the chat service")
		fmt.Fprintln(cb.out, "  /settings            - Show saved and pending settings")
		fmt.Fprintln(cb.out, "  /set <key> <value>   - Edit a pending setting")
		fmt.Fprintln(cb.out, "  /save                - Save pending settings")
		fmt.Fprintln(cb.out, "  /reset               - Reset pending settings to defaults")
		fmt.Fprintln(cb.out, "  /export <file>       - Export the transcript as HTML")
		fmt.Fprintln(cb.out, "  /help                - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", parts[0])
	}
}

func (cb *ChatBot) printSettings() {
	saved, pending := cb.Settings(), cb.PendingSettings()
	fmt.Fprintf(cb.out, "%-15s %-30s %s\n", "key", "saved", "pending")
	for _, key := range settings.Keys() {
		s, _ := saved.Get(key)
		p, _ := pending.Get(key)
		fmt.Fprintf(cb.out, "%-15s %-30s %s\n", key, s, p)
	}
}

// Run starts the interactive chat loop reading from in
func (cb *ChatBot) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(cb.out, "=== ChatPanel ===")
	if err := cb.Start(ctx); err != nil {
		fmt.Fprintf(cb.out, "Error: %v\n", err)
	}
	fmt.Fprintln(cb.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(cb.out)

	scanner := bufio.NewScanner(in)

	for {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprint(cb.out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input, scanner)
			if err != nil {
				fmt.Fprintf(cb.out, "Error: %v\n", err)
				cb.logger.Error("command error", "command", input, "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		// failures are already shown in the transcript
		if err := cb.SendMessage(ctx, input); err != nil {
			cb.logger.Debug("message not delivered", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Fprintln(cb.out, "Goodbye!")
	return nil
}
