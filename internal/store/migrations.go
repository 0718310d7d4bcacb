package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create turns",
		SQL: `
			CREATE TABLE turns (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				chat_id     TEXT NOT NULL,
				speaker     TEXT NOT NULL,
				text        TEXT NOT NULL,
				origin      TEXT NOT NULL,
				timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_turns_chat ON turns (chat_id, id);
		`,
	},
}
