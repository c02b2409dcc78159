// Package service hosts many sessions behind one process: a registry keyed
// by UUID, long-poll notification, a shared search pool and optional storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"github.com/rs/zerolog"

	"xiangqi/internal/core"
	"xiangqi/internal/render"
	"xiangqi/internal/session"
	"xiangqi/internal/storage"
	"xiangqi/internal/xiangqi"
)

const (
	DefaultMaxSessions = 1000
	TokenTTL           = 24 * time.Hour
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSearchInProgress = errors.New("search in progress")
	ErrSessionLimit     = errors.New("session limit reached")
)

// Service is the state manager for hosted sessions with optional persistence
type Service struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	store   *storage.Store // nil if persistence disabled
	secret  []byte
	book    *xiangqi.Book
	pool    *SearchPool
	waiters *WaitRegistry
	log     zerolog.Logger

	maxSessions int
	workers     int
	waitTimeout time.Duration
	newEngine   func(zerolog.Logger) session.Engine
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithBook sets the opening book shared by every session's engine
func WithBook(b *xiangqi.Book) Option {
	return func(s *Service) { s.book = b }
}

func WithMaxSessions(n int) Option {
	return func(s *Service) { s.maxSessions = n }
}

func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

func WithWaitTimeout(d time.Duration) Option {
	return func(s *Service) { s.waitTimeout = d }
}

// New creates a service. store may be nil; secret signs seat tokens.
func New(store *storage.Store, secret []byte, opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*Session),
		store:       store,
		secret:      secret,
		log:         zerolog.Nop(),
		maxSessions: DefaultMaxSessions,
		workers:     4,
		waitTimeout: WaitTimeout,
	}
	s.newEngine = func(l zerolog.Logger) session.Engine {
		return xiangqi.New(s.book, xiangqi.WithLogger(l))
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = NewSearchPool(s.workers, 100, s.log)
	s.waiters = NewWaitRegistry(s.waitTimeout)
	return s
}

// CreateSession starts a session and returns it with a seat token for its player
func (s *Service) CreateSession(cfg session.Config) (*Session, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		return nil, "", ErrSessionLimit
	}
	id := s.generateID()

	sess := &Session{ID: id, Created: time.Now().UTC()}
	logger := s.log.With().Str("session", id).Logger()

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithRunner(s.pool.Submit),
	}
	if s.store != nil {
		opts = append(opts, session.WithListener(&persister{id: id, store: s.store}))
	}
	view := render.NewNotifyView(func() {
		s.waiters.NotifySession(id, sess.version.Add(1))
	})
	ctrl, err := session.New(s.newEngine(logger), view, cfg, opts...)
	if err != nil {
		return nil, "", err
	}
	sess.ctrl = ctrl
	cfg = ctrl.Config()

	token, err := auth.GenerateHS256Token(s.secret, id, map[string]any{
		"human":  humanSide(cfg).String(),
		"layout": core.Layouts[cfg.Layout].Name,
	}, TokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue seat token: %w", err)
	}

	// Record before Start so an engine-first reply lands after the session row
	if s.store != nil {
		s.store.RecordSession(storage.SessionRecord{
			SessionID:    id,
			Layout:       cfg.Layout,
			Level:        cfg.Level,
			Flipped:      cfg.Flipped,
			InitialFEN:   core.Layouts[cfg.Layout].FEN,
			Outcome:      core.OutcomeOngoing.String(),
			StartTimeUTC: sess.Created,
		})
	}

	sess.mu.Lock()
	err = ctrl.Start()
	sess.mu.Unlock()
	if err != nil {
		return nil, "", fmt.Errorf("failed to start session: %w", err)
	}

	s.sessions[id] = sess
	logger.Info().Int("level", cfg.Level).Int("layout", cfg.Layout).Bool("flipped", cfg.Flipped).Msg("session created")
	return sess, token, nil
}

func humanSide(cfg session.Config) core.Side {
	if cfg.Flipped {
		return core.Black
	}
	return core.Red
}

// generateID returns an unused UUID. Caller holds mu.
func (s *Service) generateID() string {
	for {
		id := uuid.New().String()
		if _, exists := s.sessions[id]; !exists {
			return id
		}
	}
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Tap forwards a board tap. Rejected input is reported, not an error.
func (s *Service) Tap(id string, col, row int) (*Session, bool, error) {
	return s.foreground(id, func(c *session.Controller) bool { return c.OnInput(col, row) })
}

func (s *Service) Restart(id string) (*Session, bool, error) {
	return s.foreground(id, (*session.Controller).Restart)
}

func (s *Service) Retract(id string) (*Session, bool, error) {
	return s.foreground(id, (*session.Controller).Retract)
}

func (s *Service) foreground(id string, op func(*session.Controller) bool) (*Session, bool, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess, op(sess.ctrl), nil
}

// WaitForChange blocks until the session moves past version, the wait
// times out, or ctx ends. It returns the session as it is then.
func (s *Service) WaitForChange(ctx context.Context, id string, version uint64) (*Session, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if sess.Version() != version {
		return sess, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	notify := s.waiters.RegisterWait(ctx, id, version)

	// A change between the first check and registration would be missed
	if sess.Version() == version {
		<-notify
	}
	return s.GetSession(id)
}

// DeleteSession removes an idle session
func (s *Service) DeleteSession(id string) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.ctrl.Thinking() {
		return ErrSearchInProgress
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.waiters.RemoveSession(id)
	if s.store != nil {
		s.store.DeleteSession(id)
	}
	s.log.Info().Str("session", id).Msg("session deleted")
	return nil
}

// ValidateToken verifies a seat token and returns its session ID with claims
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	return auth.ValidateHS256Token(s.secret, token)
}

// SessionCount returns the number of hosted sessions
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// Close releases long polls, waits for running searches and closes storage
func (s *Service) Close() error {
	var errs []error
	if err := s.waiters.Shutdown(5 * time.Second); err != nil {
		errs = append(errs, err)
	}

	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.Wait()
	}

	if err := s.pool.Shutdown(5 * time.Second); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
