package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ChatPanel/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite backing store for settings and archived transcripts
type DB struct {
	db *sql.DB
}

// SessionSummary describes one archived session
type SessionSummary struct {
	ID           string
	StartTime    time.Time
	MessageCount int
}

// OpenSQLite opens (and creates if needed) the SQLite database at path
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	createKVTable := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		start_time DATETIME,
		system_prompt TEXT
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME,
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`

	for name, stmt := range map[string]string{
		"kv":       createKVTable,
		"sessions": createSessionsTable,
		"messages": createMessagesTable,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Get implements settings.Store
func (d *DB) Get(key string) (string, bool, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements settings.Store
func (d *DB) Set(key, value string) error {
	_, err := d.db.Exec("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// SaveTranscript replaces the archived copy of a session's transcript
func (d *DB) SaveTranscript(ctx context.Context, sess session.Session) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (id, start_time, system_prompt) VALUES (?, ?, ?)",
		sess.ID, sess.StartTime, sess.SystemPrompt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for _, msg := range sess.Messages {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			sess.ID, msg.Role, msg.Content, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTranscript loads an archived session with its messages in append order
func (d *DB) LoadTranscript(ctx context.Context, sessionID string) (*session.Session, error) {
	var startTime time.Time
	var systemPrompt sql.NullString

	err := d.db.QueryRowContext(ctx, "SELECT start_time, system_prompt FROM sessions WHERE id = ?", sessionID).
		Scan(&startTime, &systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []session.Message{}
	for rows.Next() {
		var msg session.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return &session.Session{
		ID:           sessionID,
		StartTime:    startTime,
		SystemPrompt: systemPrompt.String,
		MessageCount: len(messages),
		Messages:     messages,
	}, nil
}

// ListTranscripts returns archived sessions, most recent first
func (d *DB) ListTranscripts(ctx context.Context) ([]SessionSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.id, s.start_time, COUNT(m.id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id, s.start_time
		ORDER BY s.start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.StartTime, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
