package service

import (
	"sync"
	"sync/atomic"
	"time"

	"xiangqi/internal/core"
	"xiangqi/internal/render"
	"xiangqi/internal/session"
	"xiangqi/internal/storage"
)

// Session is one hosted game. Foreground calls are serialised by mu, which
// plays the part of a UI thread; the search runs on the pool.
type Session struct {
	ID      string
	Created time.Time

	ctrl    *session.Controller
	mu      sync.Mutex
	version atomic.Uint64
}

// Version counts repaint requests. It moves whenever visible state may have changed.
func (s *Session) Version() uint64 {
	return s.version.Load()
}

// State returns the published session state
func (s *Session) State() session.Snapshot {
	return s.ctrl.State()
}

// Thinking reports whether the engine owns the turn
func (s *Session) Thinking() bool {
	return s.ctrl.Thinking()
}

// Wait blocks until no search is running
func (s *Session) Wait() {
	s.ctrl.Wait()
}

// Board renders the published frame as text
func (s *Session) Board(glyphs bool) string {
	return render.Board(s.ctrl, s.ctrl.State().Flipped, glyphs)
}

// Response builds the API view of the session
func (s *Session) Response() core.SessionResponse {
	version := s.Version()
	st := s.ctrl.State()

	resp := core.SessionResponse{
		SessionID: s.ID,
		FEN:       st.FEN,
		Turn:      st.SideToMove.String(),
		Human:     st.Human.String(),
		Moves:     make([]string, 0, len(st.Moves)),
		Thinking:  st.Thinking,
		History:   st.History,
		Outcome:   st.Outcome.String(),
		Level:     st.Level,
		Layout:    core.Layouts[st.Layout].Name,
		Flipped:   st.Flipped,
		Version:   version,
	}
	if st.Selected != core.NoSquare {
		resp.Selected = st.Selected.String()
	}
	resp.LastMove = st.LastMove.String()
	for _, mv := range st.Moves {
		resp.Moves = append(resp.Moves, mv.String())
	}
	return resp
}

// persister mirrors controller events into storage.
type persister struct {
	id    string
	store *storage.Store
}

func (p *persister) MoveApplied(ev session.MoveEvent) {
	p.store.RecordMove(storage.MoveRecord{
		SessionID:   p.id,
		Ply:         ev.Ply,
		MoveICCS:    ev.Move.String(),
		Side:        ev.Side.String(),
		FENAfter:    ev.FEN,
		Automated:   ev.Automated,
		MoveTimeUTC: time.Now().UTC(),
	})
	if ev.Outcome != core.OutcomeOngoing {
		p.store.UpdateOutcome(p.id, ev.Outcome.String())
	}
}

func (p *persister) PositionReset(ev session.ResetEvent) {
	p.store.TrimMoves(p.id, ev.Ply)
	if ev.Reason != session.ResetStart {
		p.store.UpdateOutcome(p.id, core.OutcomeOngoing.String())
	}
}
