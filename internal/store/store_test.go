package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRunsMigrations(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestArchiveRecordAndTranscript(t *testing.T) {
	a := NewSQLiteArchive(testDB(t))
	id := domain.ConversationID("alice@s.whatsapp.net")

	a.Record(id, domain.Turn{Speaker: "Alice", Text: "hello", Origin: domain.OriginHuman, Timestamp: time.Now()})
	a.Record(id, domain.Turn{Speaker: "Wabot", Text: "hi Alice", Origin: domain.OriginBot, Timestamp: time.Now()})

	turns, err := a.Transcript(id, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, domain.OriginHuman, turns[0].Origin)
	assert.Equal(t, "hi Alice", turns[1].Text)
	assert.Equal(t, domain.OriginBot, turns[1].Origin)
}

func TestArchiveTranscriptLimitKeepsNewest(t *testing.T) {
	a := NewSQLiteArchive(testDB(t))
	id := domain.ConversationID("chat")

	for i := 1; i <= 5; i++ {
		a.Record(id, domain.Turn{Speaker: "Alice", Text: fmt.Sprintf("msg-%d", i), Origin: domain.OriginHuman, Timestamp: time.Now()})
	}

	turns, err := a.Transcript(id, 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "msg-3", turns[0].Text)
	assert.Equal(t, "msg-5", turns[2].Text)
}

func TestArchiveTranscriptUnknownChat(t *testing.T) {
	a := NewSQLiteArchive(testDB(t))
	turns, err := a.Transcript("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestNopArchive(t *testing.T) {
	var a Archive = NopArchive{}
	a.Record("x", domain.Turn{Speaker: "a", Text: "b"})
	turns, err := a.Transcript("x", 10)
	require.NoError(t, err)
	assert.Nil(t, turns)
}
