package chatbot

import (
	"context"
	"fmt"
	"strings"

	"ChatPanel/internal/backend"
	"ChatPanel/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CheckConnectivity probes the service and updates the connectivity indicator.
// Rejections and transport failures both count as disconnected; there is no retry.
func (cb *ChatBot) CheckConnectivity(ctx context.Context) bool {
	ctx, span := cb.tracer.Start(ctx, "check_connectivity")
	defer span.End()

	err := cb.service.Health(ctx)
	if err != nil {
		cb.logger.Warn("chat service unreachable", "error", err)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setConnectedLocked(err == nil)
	span.SetAttributes(attribute.Bool("connected", err == nil))
	return err == nil
}

// CreateSession asks the service for a new session and makes it the active one.
// The transcript is reset to the welcome message whatever the outcome. On failure
// the client is left without a session and marked disconnected.
func (cb *ChatBot) CreateSession(ctx context.Context, systemPrompt string) error {
	ctx, span := cb.tracer.Start(ctx, "create_session")
	defer span.End()

	cb.mu.Lock()
	cb.epoch++
	epoch := cb.epoch
	cb.mu.Unlock()

	id, err := cb.service.CreateSession(ctx, systemPrompt)

	cb.mu.Lock()
	if cb.staleLocked(ctx, epoch, "", "create_session") {
		cb.mu.Unlock()
		return ErrSessionSuperseded
	}

	cb.transcript = nil
	cb.history = nil
	cb.display = SessionDisplay{}
	cb.view.ClearMessages()
	if cb.typing {
		cb.setTypingLocked(false)
	}
	cb.appendLocked(session.NewBotMessage(WelcomeMessage, cb.now()))

	if err != nil {
		cb.current = nil
		cb.setConnectedLocked(false)
		cb.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cb.logger.Error("failed to create session", "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	cb.current = &session.Session{
		ID:           id,
		StartTime:    cb.now(),
		SystemPrompt: systemPrompt,
	}
	cb.setConnectedLocked(true)
	cb.mu.Unlock()

	span.SetAttributes(attribute.String("session_id", id))
	cb.logger.Info("created new session", "session_id", id, "system_prompt", systemPrompt != "")

	if err := cb.RefreshSessionMetadata(ctx); err != nil {
		cb.logger.Debug("session metadata not refreshed", "error", err)
	}
	return nil
}

// NewSession starts a fresh session seeded with the saved system prompt and
// refreshes the history panel
func (cb *ChatBot) NewSession(ctx context.Context) error {
	cb.mu.Lock()
	prompt := cb.saved.SystemPrompt
	cb.mu.Unlock()

	if err := cb.CreateSession(ctx, prompt); err != nil {
		return err
	}
	if err := cb.RefreshHistory(ctx); err != nil {
		cb.logger.Debug("history not refreshed", "error", err)
	}
	return nil
}

// SendMessage posts text to the active session. Blank text is ignored. The user
// message is shown before the request is made; a failed request is answered with
// ApologyMessage and is not retried.
func (cb *ChatBot) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	cb.mu.Lock()
	if cb.current == nil {
		cb.view.Notice(NoSessionWarning)
		cb.mu.Unlock()
		return ErrNoSession
	}
	sessionID, epoch := cb.current.ID, cb.epoch
	cb.appendLocked(session.NewUserMessage(text, cb.now()))
	cb.setTypingLocked(true)
	cb.mu.Unlock()

	ctx, span := cb.tracer.Start(ctx, "send_message")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	reply, err := cb.service.Chat(ctx, sessionID, text)

	cb.mu.Lock()
	if cb.staleLocked(ctx, epoch, sessionID, "chat") {
		cb.mu.Unlock()
		return ErrSessionSuperseded
	}
	cb.setTypingLocked(false)

	if err != nil {
		cb.appendLocked(session.NewBotMessage(ApologyMessage, cb.now()))
		cb.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cb.logger.Error("failed to send message", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to send message: %w", err)
	}

	cb.appendLocked(session.NewBotMessage(reply, cb.now()))
	snapshot := cb.snapshotLocked()
	autoSave := cb.saved.AutoSave
	cb.mu.Unlock()

	if err := cb.RefreshHistory(ctx); err != nil {
		cb.logger.Debug("history not refreshed", "error", err)
	}
	if err := cb.RefreshSessionMetadata(ctx); err != nil {
		cb.logger.Debug("session metadata not refreshed", "error", err)
	}

	if autoSave && cb.archive != nil {
		if err := cb.archive.SaveTranscript(ctx, snapshot); err != nil {
			cb.logger.Error("failed to archive transcript", "session_id", sessionID, "error", err)
		} else {
			cb.logger.Info("session saved", "session_id", sessionID, "message_count", len(snapshot.Messages))
		}
	}
	return nil
}

// RefreshHistory replaces the history panel with the last entries the service
// reports for the active session
func (cb *ChatBot) RefreshHistory(ctx context.Context) error {
	cb.mu.Lock()
	if cb.current == nil {
		cb.mu.Unlock()
		return nil
	}
	sessionID, epoch := cb.current.ID, cb.epoch
	cb.mu.Unlock()

	ctx, span := cb.tracer.Start(ctx, "refresh_history")
	defer span.End()

	messages, err := cb.service.History(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		cb.logger.Warn("error fetching chat history", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	entries := historyEntries(messages)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.staleLocked(ctx, epoch, sessionID, "history") {
		return ErrSessionSuperseded
	}
	cb.history = entries
	cb.view.ShowHistory(entries)
	return nil
}

// RefreshSessionMetadata updates the displayed session id and message count
func (cb *ChatBot) RefreshSessionMetadata(ctx context.Context) error {
	cb.mu.Lock()
	if cb.current == nil {
		cb.mu.Unlock()
		return nil
	}
	sessionID, epoch := cb.current.ID, cb.epoch
	cb.mu.Unlock()

	ctx, span := cb.tracer.Start(ctx, "refresh_session_metadata")
	defer span.End()

	info, err := cb.service.SessionInfo(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		cb.logger.Warn("error fetching session info", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to fetch session info: %w", err)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.staleLocked(ctx, epoch, sessionID, "session_info") {
		return ErrSessionSuperseded
	}
	cb.current.MessageCount = info.Count()
	cb.display = SessionDisplay{
		ID:           truncate(info.SessionID, sessionIDDisplay),
		MessageCount: info.Count(),
	}
	cb.view.ShowSessionInfo(cb.display)
	return nil
}

func (cb *ChatBot) snapshotLocked() session.Session {
	s := *cb.current
	s.Messages = append([]session.Message(nil), cb.transcript...)
	return s
}

// historyEntries keeps the most recent entries, each cut to a short preview
func historyEntries(messages []backend.HistoryMessage) []HistoryEntry {
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	entries := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, HistoryEntry{
			Role:    m.Role,
			Preview: truncate(m.Content, historyPreviewLen),
		})
	}
	return entries
}
