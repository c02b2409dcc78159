// Package storage persists sessions and their moves to SQLite. Writes are
// queued to a single writer goroutine so gameplay never waits on disk.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var ErrFlushTimeout = errors.New("storage flush timed out")

// writeOp is one queued write. Flush markers carry only flushed and run even
// when the store is degraded.
type writeOp struct {
	fn      func(*sql.Tx) error
	flushed chan struct{}
}

// Store handles SQLite database operations with async writes
type Store struct {
	db           *sql.DB
	path         string
	writeChan    chan writeOp
	healthStatus atomic.Bool
	log          zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewStore creates a new storage instance with async writer
func NewStore(dataSourceName string, devMode bool, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the CLI read while the server writes
	if devMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		db:        db,
		path:      dataSourceName,
		writeChan: make(chan writeOp, 1000),
		log:       logger.With().Str("component", "storage").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.healthStatus.Store(true)

	s.wg.Add(1)
	go s.writerLoop()

	return s, nil
}

// writerLoop processes async write operations
func (s *Store) writerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain what is already queued, then stop
			for {
				select {
				case op := <-s.writeChan:
					s.run(op)
				default:
					return
				}
			}

		case op := <-s.writeChan:
			s.run(op)
		}
	}
}

func (s *Store) run(op writeOp) {
	if op.flushed != nil {
		close(op.flushed)
		return
	}
	if s.healthStatus.Load() {
		s.executeWrite(op.fn)
	}
}

// executeWrite runs a transactional write operation
func (s *Store) executeWrite(fn func(*sql.Tx) error) {
	tx, err := s.db.Begin()
	if err != nil {
		s.log.Error().Err(err).Msg("storage degraded: failed to begin transaction")
		s.healthStatus.Store(false)
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		s.log.Error().Err(err).Msg("storage degraded: write operation failed")
		s.healthStatus.Store(false)
		return
	}

	if err := tx.Commit(); err != nil {
		s.log.Error().Err(err).Msg("storage degraded: failed to commit")
		s.healthStatus.Store(false)
	}
}

// enqueue hands fn to the writer, dropping it when degraded or when the queue is full.
func (s *Store) enqueue(what string, fn func(*sql.Tx) error) {
	if !s.healthStatus.Load() {
		return
	}
	select {
	case s.writeChan <- writeOp{fn: fn}:
	default:
		s.log.Warn().Str("write", what).Msg("storage write queue full, dropping")
	}
}

// RecordSession asynchronously records a new session
func (s *Store) RecordSession(record SessionRecord) {
	s.enqueue("session", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO sessions (
			session_id, layout, level, flipped, initial_fen, outcome, start_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.SessionID, record.Layout, record.Level, record.Flipped,
			record.InitialFEN, record.Outcome, record.StartTimeUTC,
		)
		return err
	})
}

// RecordMove asynchronously records a move. A replayed ply overwrites the old row.
func (s *Store) RecordMove(record MoveRecord) {
	s.enqueue("move", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT OR REPLACE INTO moves (
			session_id, ply, move_iccs, side, fen_after, automated, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.SessionID, record.Ply, record.MoveICCS, record.Side,
			record.FENAfter, record.Automated, record.MoveTimeUTC,
		)
		return err
	})
}

// TrimMoves asynchronously deletes moves after a retract or restart
func (s *Store) TrimMoves(sessionID string, afterPly int) {
	s.enqueue("trim", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM moves WHERE session_id = ? AND ply > ?`, sessionID, afterPly)
		return err
	})
}

// UpdateOutcome asynchronously stores the session result
func (s *Store) UpdateOutcome(sessionID, outcome string) {
	s.enqueue("outcome", func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE sessions SET outcome = ? WHERE session_id = ?`, outcome, sessionID)
		return err
	})
}

// DeleteSession asynchronously removes a session and its moves
func (s *Store) DeleteSession(sessionID string) {
	s.enqueue("delete", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
		return err
	})
}

// Flush blocks until every write queued before the call has been executed.
func (s *Store) Flush(timeout time.Duration) error {
	done := make(chan struct{})
	select {
	case s.writeChan <- writeOp{flushed: done}:
	case <-time.After(timeout):
		return ErrFlushTimeout
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrFlushTimeout
	}
}

// IsHealthy returns the current health status
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

// Close gracefully closes the database connection
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			s.log.Warn().Msg("storage writer shutdown timeout, some writes may be lost")
		}

		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// ☣ DESTRUCTIVE: Removes database file
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}

// QuerySessions retrieves sessions, newest first. An empty or "*" id matches all.
func (s *Store) QuerySessions(sessionID string) ([]SessionRecord, error) {
	query := `SELECT session_id, layout, level, flipped, initial_fen, outcome, start_time_utc
	FROM sessions WHERE 1=1`

	var args []any
	if sessionID != "" && sessionID != "*" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY start_time_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.SessionID, &r.Layout, &r.Level, &r.Flipped,
			&r.InitialFEN, &r.Outcome, &r.StartTimeUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sessions = append(sessions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return sessions, nil
}

// QueryMoves retrieves a session's moves in ply order
func (s *Store) QueryMoves(sessionID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT move_id, session_id, ply, move_iccs, side, fen_after, automated, move_time_utc
	FROM moves WHERE session_id = ? ORDER BY ply`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.MoveID, &m.SessionID, &m.Ply, &m.MoveICCS, &m.Side,
			&m.FENAfter, &m.Automated, &m.MoveTimeUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return moves, nil
}
