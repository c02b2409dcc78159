package storage

import "time"

// SessionRecord represents a row in the sessions table
type SessionRecord struct {
	SessionID    string    `db:"session_id"`
	Layout       int       `db:"layout"`
	Level        int       `db:"level"`
	Flipped      bool      `db:"flipped"`
	InitialFEN   string    `db:"initial_fen"`
	Outcome      string    `db:"outcome"`
	StartTimeUTC time.Time `db:"start_time_utc"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID      int64     `db:"move_id"`
	SessionID   string    `db:"session_id"`
	Ply         int       `db:"ply"`
	MoveICCS    string    `db:"move_iccs"`
	Side        string    `db:"side"` // "red" or "black"
	FENAfter    string    `db:"fen_after"`
	Automated   bool      `db:"automated"`
	MoveTimeUTC time.Time `db:"move_time_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	layout INTEGER NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 0,
	flipped INTEGER NOT NULL DEFAULT 0,
	initial_fen TEXT NOT NULL,
	outcome TEXT NOT NULL DEFAULT 'ongoing',
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	ply INTEGER NOT NULL,
	move_iccs TEXT NOT NULL,
	side TEXT NOT NULL CHECK(side IN ('red', 'black')),
	fen_after TEXT NOT NULL,
	automated INTEGER NOT NULL DEFAULT 0,
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
	UNIQUE(session_id, ply)
);

CREATE INDEX IF NOT EXISTS idx_moves_session_id ON moves(session_id);
`
