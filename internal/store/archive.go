package store

import (
	"time"

	"github.com/soyeahso/wabot/internal/domain"
)

// Archive mirrors recorded turns into durable storage. The in-memory
// history store stays authoritative for reply context; the archive is
// write-behind and its failures never block the reply pipeline.
type Archive interface {
	// Record persists one turn. Errors are logged by implementations.
	Record(chatID domain.ConversationID, turn domain.Turn)

	// Transcript returns up to limit archived turns for a conversation
	// in chronological order.
	Transcript(chatID domain.ConversationID, limit int) ([]domain.Turn, error)
}

// NopArchive discards everything; used when no archive is configured.
type NopArchive struct{}

func (NopArchive) Record(domain.ConversationID, domain.Turn) {}

func (NopArchive) Transcript(domain.ConversationID, int) ([]domain.Turn, error) {
	return nil, nil
}

// SQLiteArchive implements Archive on top of DB.
type SQLiteArchive struct {
	db *DB
}

// NewSQLiteArchive creates a transcript archive using the given database.
func NewSQLiteArchive(db *DB) *SQLiteArchive {
	return &SQLiteArchive{db: db}
}

// Record persists one turn. Failures are logged, not returned: the
// archive is best-effort by contract.
func (a *SQLiteArchive) Record(chatID domain.ConversationID, turn domain.Turn) {
	_, err := a.db.sql.Exec(
		`INSERT INTO turns (chat_id, speaker, text, origin, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		string(chatID), turn.Speaker, turn.Text, string(turn.Origin),
		turn.Timestamp.UTC().Format(time.DateTime),
	)
	if err != nil {
		a.db.log.Error().Err(err).Str("chatId", string(chatID)).Msg("failed to archive turn")
	}
}

// Transcript returns up to limit archived turns in chronological order.
func (a *SQLiteArchive) Transcript(chatID domain.ConversationID, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := a.db.sql.Query(
		`SELECT speaker, text, origin, timestamp
		 FROM (
		   SELECT id, speaker, text, origin, timestamp
		   FROM turns WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		string(chatID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var origin, ts string
		if err := rows.Scan(&t.Speaker, &t.Text, &origin, &ts); err != nil {
			continue
		}
		t.Origin = domain.TurnOrigin(origin)
		t.Timestamp, _ = time.Parse(time.DateTime, ts)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
