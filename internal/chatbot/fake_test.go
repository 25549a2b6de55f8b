package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ChatPanel/internal/backend"
	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"
)

// fakeService is an in-process chat service speaking the HTTP contract
type fakeService struct {
	mu           sync.Mutex
	nextID       int
	healthStatus int
	createStatus int
	chatStatus   int
	omitCount    bool
	idPrefix     string
	prompts      []string
	chatCalls    int
	history      map[string][]backend.HistoryMessage
	gates        map[string]*gate
}

// gate holds the next request to one endpoint until released
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{
		healthStatus: http.StatusOK,
		createStatus: http.StatusOK,
		chatStatus:   http.StatusOK,
		idPrefix:     "session",
		history:      make(map[string][]backend.HistoryMessage),
		gates:        make(map[string]*gate),
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/health":
		f.mu.Lock()
		status := f.healthStatus
		f.mu.Unlock()
		w.WriteHeader(status)

	case path == "/session/create" && r.Method == http.MethodPost:
		var req backend.CreateSessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.pass("create")

		f.mu.Lock()
		status := f.createStatus
		f.prompts = append(f.prompts, req.SystemPrompt)
		f.nextID++
		id := fmt.Sprintf("%s-%d", f.idPrefix, f.nextID)
		f.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "cannot create session", status)
			return
		}
		writeJSON(w, backend.CreateSessionResponse{SessionID: id})

	case path == "/chat":
		var req backend.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.chatCalls++
		f.mu.Unlock()
		f.pass("chat")

		f.mu.Lock()
		status := f.chatStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "model overloaded", status)
			return
		}

		reply := "reply to: " + req.Message
		f.mu.Lock()
		f.history[req.SessionID] = append(f.history[req.SessionID],
			backend.HistoryMessage{Role: "user", Content: req.Message},
			backend.HistoryMessage{Role: "assistant", Content: reply},
		)
		f.mu.Unlock()
		writeJSON(w, backend.ChatResponse{Response: reply, SessionID: req.SessionID})

	case strings.HasPrefix(path, "/history/"):
		id := strings.TrimPrefix(path, "/history/")
		f.pass("history")
		f.mu.Lock()
		msgs := append([]backend.HistoryMessage{}, f.history[id]...)
		f.mu.Unlock()
		writeJSON(w, backend.HistoryResponse{SessionID: id, Messages: msgs})

	case strings.HasPrefix(path, "/session/"):
		id := strings.TrimPrefix(path, "/session/")
		f.pass("session")
		f.mu.Lock()
		count := len(f.history[id])
		omit := f.omitCount
		f.mu.Unlock()
		if omit {
			writeJSON(w, map[string]string{"session_id": id})
			return
		}
		writeJSON(w, backend.SessionInfo{SessionID: id, MessagesCount: &count})

	default:
		http.NotFound(w, r)
	}
}

// hold makes the next request to op block until the returned gate is released
func (f *fakeService) hold(op string) *gate {
	g := &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[op] = g
	return g
}

// pass blocks on a pending gate for op, consuming it
func (f *fakeService) pass(op string) {
	f.mu.Lock()
	g := f.gates[op]
	delete(f.gates, op)
	f.mu.Unlock()

	if g != nil {
		g.started <- struct{}{}
		<-g.release
	}
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// recordingView keeps every display change
type recordingView struct {
	mu        sync.Mutex
	connected []bool
	typing    []bool
	clears    int
	messages  []session.Message
	history   [][]HistoryEntry
	info      []SessionDisplay
	settings  []settings.Settings
	notices   []string
}

func (v *recordingView) SetConnected(c bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = append(v.connected, c)
}

func (v *recordingView) SetTyping(t bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = append(v.typing, t)
}

func (v *recordingView) ClearMessages() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clears++
	v.messages = nil
}

func (v *recordingView) AppendMessage(m session.Message, _ bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
}

func (v *recordingView) ShowHistory(e []HistoryEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = append(v.history, e)
}

func (v *recordingView) ShowSessionInfo(i SessionDisplay) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.info = append(v.info, i)
}

func (v *recordingView) ShowSettings(s settings.Settings) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settings = append(v.settings, s)
}

func (v *recordingView) Notice(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, text)
}

// recordingArchive keeps every archived transcript
type recordingArchive struct {
	mu    sync.Mutex
	saved []session.Session
}

func (a *recordingArchive) SaveTranscript(_ context.Context, s session.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, s)
	return nil
}

type harness struct {
	bot     *ChatBot
	fake    *fakeService
	srv     *httptest.Server
	view    *recordingView
	store   *settings.MemoryStore
	archive *recordingArchive
}

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	fake := newFakeService()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	h := &harness{
		fake:    fake,
		srv:     srv,
		view:    &recordingView{},
		store:   settings.NewMemoryStore(),
		archive: &recordingArchive{},
	}

	client := backend.NewClient(srv.URL, backend.WithLogger(quietLogger()))
	base := []Option{
		WithView(h.view),
		WithArchive(h.archive),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
		WithAPIURL(srv.URL),
		WithOutput(io.Discard),
	}
	h.bot = NewChatBot(client, settings.NewManager(h.store), append(base, opts...)...)
	return h
}

func contents(msgs []session.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
