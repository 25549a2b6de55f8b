// Package chatbot implements the chat client: one active session against the remote
// chat service, the local transcript, the history panel and the user settings.
package chatbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"ChatPanel/internal/backend"
	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	WelcomeMessage = "Welcome to AI Chatbot! 🤖\n" +
		"I'm your AI assistant with tool capabilities. I can help with:\n" +
		"- natural conversations\n" +
		"- mathematical calculations\n" +
		"- the current time and date\n" +
		"- searching our conversation history\n" +
		"How can I help you today?"
	ApologyMessage      = "Sorry, I encountered an error. Please try again."
	SettingsSavedNotice = "Settings saved successfully!"
	NoSessionWarning    = "No active session. Start a new session before sending messages."
)

var (
	// ErrNoSession is returned when an operation needs a session and none is active
	ErrNoSession = errors.New("no active session")
	// ErrSessionSuperseded is returned when a response arrives for a session that a
	// later CreateSession call has replaced; the response is discarded
	ErrSessionSuperseded = errors.New("session superseded")
)

// Service is the remote chat service
type Service interface {
	Health(ctx context.Context) error
	CreateSession(ctx context.Context, systemPrompt string) (string, error)
	Chat(ctx context.Context, sessionID, message string) (string, error)
	History(ctx context.Context, sessionID string) ([]backend.HistoryMessage, error)
	SessionInfo(ctx context.Context, sessionID string) (backend.SessionInfo, error)
	SetBaseURL(baseURL string)
}

// Archiver stores transcripts when autoSave is enabled
type Archiver interface {
	SaveTranscript(ctx context.Context, sess session.Session) error
}

// ChatBot represents the chat client
type ChatBot struct {
	service  Service
	settings *settings.Manager
	archive  Archiver
	view     View
	out      io.Writer
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	discarded   metric.Int64Counter
	apiOverride string

	mu         sync.Mutex
	current    *session.Session
	epoch      uint64
	connected  bool
	typing     bool
	transcript []session.Message
	history    []HistoryEntry
	display    SessionDisplay
	saved      settings.Settings
	pending    settings.Settings
}

// Option configures a ChatBot
type Option func(*ChatBot)

// WithView sets where display changes are sent
func WithView(v View) Option {
	return func(cb *ChatBot) { cb.view = v }
}

// WithArchive enables transcript archiving (honoured only while autoSave is on)
func WithArchive(a Archiver) Option {
	return func(cb *ChatBot) { cb.archive = a }
}

// WithOutput sets the writer the interactive loop prompts on
func WithOutput(w io.Writer) Option {
	return func(cb *ChatBot) { cb.out = w }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(cb *ChatBot) { cb.logger = logger }
}

// WithTelemetry sets the tracer and meter
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(cb *ChatBot) {
		cb.tracer = tracer
		cb.initMetrics(meter)
	}
}

// WithClock sets the time source for message timestamps
func WithClock(now func() time.Time) Option {
	return func(cb *ChatBot) { cb.now = now }
}

// WithAPIURL overrides the saved apiUrl for this process without persisting it
func WithAPIURL(u string) Option {
	return func(cb *ChatBot) { cb.apiOverride = u }
}

// NewChatBot creates a ChatBot. Settings are not read until LoadSettings or Start.
func NewChatBot(service Service, manager *settings.Manager, opts ...Option) *ChatBot {
	cb := &ChatBot{
		service:  service,
		settings: manager,
		view:     nopView{},
		out:      os.Stdout,
		logger:   slog.Default(),
		tracer:   otel.Tracer("chatpanel/chatbot"),
		now:      time.Now,
		saved:    settings.Defaults(),
		pending:  settings.Defaults(),
	}
	cb.initMetrics(otel.Meter("chatpanel/chatbot"))

	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *ChatBot) initMetrics(meter metric.Meter) {
	counter, err := meter.Int64Counter(
		"chatpanel.responses.discarded",
		metric.WithDescription("Responses dropped because their session was superseded"),
	)
	if err != nil {
		cb.logger.Warn("failed to create counter", "error", err)
		return
	}
	cb.discarded = counter
}

// Start loads settings, opens a session and probes connectivity
func (cb *ChatBot) Start(ctx context.Context) error {
	if err := cb.LoadSettings(); err != nil {
		cb.logger.Warn("using default settings", "error", err)
	}
	err := cb.NewSession(ctx)
	cb.CheckConnectivity(ctx)
	return err
}

// SessionID returns the active session id, empty when there is none
func (cb *ChatBot) SessionID() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.current == nil {
		return ""
	}
	return cb.current.ID
}

// Connected reports the last known connectivity state
func (cb *ChatBot) Connected() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.connected
}

// Typing reports whether the typing indicator is shown
func (cb *ChatBot) Typing() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.typing
}

// Transcript returns a copy of the displayed messages
func (cb *ChatBot) Transcript() []session.Message {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]session.Message(nil), cb.transcript...)
}

// History returns the entries currently in the history panel
func (cb *ChatBot) History() []HistoryEntry {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]HistoryEntry(nil), cb.history...)
}

// SessionDisplay returns the session metadata currently displayed
func (cb *ChatBot) SessionDisplay() SessionDisplay {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.display
}

func (cb *ChatBot) appendLocked(msg session.Message) {
	cb.transcript = append(cb.transcript, msg)
	cb.view.AppendMessage(msg, cb.saved.ShowTimestamps)
}

func (cb *ChatBot) setConnectedLocked(connected bool) {
	cb.connected = connected
	cb.view.SetConnected(connected)
}

func (cb *ChatBot) setTypingLocked(typing bool) {
	cb.typing = typing
	cb.view.SetTyping(typing)
}

// staleLocked reports whether a response tagged with epoch and sessionID belongs to
// a superseded session. A request issued while a create is in flight carries the
// new epoch but the old id, so both must still match. An empty sessionID checks the
// epoch only.
func (cb *ChatBot) staleLocked(ctx context.Context, epoch uint64, sessionID, op string) bool {
	if epoch == cb.epoch && (sessionID == "" || (cb.current != nil && cb.current.ID == sessionID)) {
		return false
	}
	cb.logger.Info("discarding response for superseded session", "op", op, "session_id", sessionID)
	if cb.discarded != nil {
		cb.discarded.Add(ctx, 1)
	}
	return true
}
