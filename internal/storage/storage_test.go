package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ChatPanel/internal/session"
	"ChatPanel/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ settings.Store = (*FileStore)(nil)
	_ settings.Store = (*DB)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "chatpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFileStore_GetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	store := NewFileStore(path)

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", `{"x":true}`))
	require.NoError(t, store.Set("a", "2"))

	reopened := NewFileStore(path)
	v, ok, err := reopened.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	v, _, err = reopened.Get("b")
	require.NoError(t, err)
	assert.Equal(t, `{"x":true}`, v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, _, err := NewFileStore(path).Get("a")
	assert.Error(t, err)
}

func TestDB_KeyValue(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.Get(settings.StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Set(settings.StorageKey, `{"apiUrl":"http://x"}`))
	require.NoError(t, db.Set(settings.StorageKey, `{"apiUrl":"http://y"}`))

	v, ok, err := db.Get(settings.StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"apiUrl":"http://y"}`, v)
}

func TestDB_SettingsManager(t *testing.T) {
	db := openTestDB(t)
	m := settings.NewManager(db)

	s := settings.Defaults()
	s.SystemPrompt = "Answer in French."
	require.NoError(t, m.Save(s))

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "Answer in French.", got.SystemPrompt)
}

func TestDB_TranscriptArchive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	sess := session.Session{
		ID:        "abc",
		StartTime: start,
		Messages: []session.Message{
			session.NewBotMessage("welcome", start),
			session.NewUserMessage("hi", start.Add(time.Second)),
		},
	}
	require.NoError(t, db.SaveTranscript(ctx, sess))

	sess.Messages = append(sess.Messages, session.NewBotMessage("hello!", start.Add(2*time.Second)))
	require.NoError(t, db.SaveTranscript(ctx, sess))

	loaded, err := db.LoadTranscript(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 3, "resaving replaces rather than duplicates")
	assert.Equal(t, "welcome", loaded.Messages[0].Content)
	assert.Equal(t, "hi", loaded.Messages[1].Content)
	assert.Equal(t, session.RoleBot, loaded.Messages[2].Role)
	assert.True(t, start.Equal(loaded.StartTime))

	later := session.Session{ID: "def", StartTime: start.Add(time.Hour)}
	require.NoError(t, db.SaveTranscript(ctx, later))

	list, err := db.ListTranscripts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "def", list[0].ID)
	assert.Equal(t, 0, list[0].MessageCount)
	assert.Equal(t, "abc", list[1].ID)
	assert.Equal(t, 3, list[1].MessageCount)

	_, err = db.LoadTranscript(ctx, "nope")
	assert.Error(t, err)
}
