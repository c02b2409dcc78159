// Package session runs one game between a pointer-driven human and the
// search engine: selection, move arbitration, undo history and the
// hand-off to a background search.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"xiangqi/internal/core"
	"xiangqi/internal/history"
)

// Thinking is the turn-ownership token.
type Thinking int32

const (
	Idle      Thinking = iota
	Searching          // search goroutine owns the engine
	Applying           // search goroutine is applying its result
)

func (t Thinking) String() string {
	switch t {
	case Searching:
		return "searching"
	case Applying:
		return "applying"
	default:
		return "idle"
	}
}

type snapshot struct {
	fen  string
	side core.Side // side to move in fen
	ply  int       // moves played before fen
}

// Controller owns turn state for one session. OnInput, Restart and Retract
// must be called from one goroutine at a time; State, DrawBoard, Thinking
// and Wait are safe from anywhere.
type Controller struct {
	eng      Engine
	view     View
	cfg      Config
	listener Listener
	log      zerolog.Logger
	run      func(func())

	thinking atomic.Int32
	searches sync.WaitGroup
	frame    atomic.Pointer[frame]

	// Mutated only by the turn owner.
	selected core.Square
	lastMove core.Move
	flipped  bool
	outcome  core.Outcome
	moves    []core.Move
	history  *history.Stack[snapshot]
}

// New validates cfg and wires the controller. Call Start to load the layout.
func New(eng Engine, view View, cfg Config, opts ...Option) (*Controller, error) {
	if eng == nil {
		return nil, ErrNoEngine
	}
	if view == nil {
		return nil, ErrNoView
	}
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	c := &Controller{
		eng:     eng,
		view:    view,
		cfg:     cfg,
		log:     zerolog.Nop(),
		run:     func(task func()) { go task() },
		flipped: cfg.Flipped,
		history: history.New[snapshot](history.Capacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.frame.Store(&frame{flipped: c.flipped})
	return c, nil
}

// Config returns the validated configuration.
func (c *Controller) Config() Config { return c.cfg }

// Start loads the configured layout and, when the engine moves first,
// launches its search.
func (c *Controller) Start() error {
	if Thinking(c.thinking.Load()) != Idle {
		return fmt.Errorf("session is searching")
	}
	return c.reset(ResetStart)
}

// Restart reloads the configured layout. Rejected while searching.
func (c *Controller) Restart() bool {
	if Thinking(c.thinking.Load()) != Idle {
		return false
	}
	if err := c.reset(ResetRestart); err != nil {
		c.log.Error().Err(err).Msg("restart failed")
		return false
	}
	return true
}

func (c *Controller) reset(reason ResetReason) error {
	fen := core.Layouts[c.cfg.Layout].FEN
	if err := c.eng.Deserialize(fen); err != nil {
		return fmt.Errorf("failed to load layout %q: %w", core.Layouts[c.cfg.Layout].Name, err)
	}
	c.selected, c.lastMove = core.NoSquare, core.NoMove
	c.flipped = c.cfg.Flipped
	c.outcome = core.OutcomeOngoing
	c.moves = c.moves[:0]
	c.history.Clear()
	c.enterTurn(reason)
	return nil
}

// Retract takes back the last full turn. It pops snapshots until one has
// the human to move or the history runs out. Rejected while searching or
// when there is nothing to undo.
func (c *Controller) Retract() bool {
	if Thinking(c.thinking.Load()) != Idle {
		return false
	}
	snap, ok := c.history.Pop()
	if !ok {
		return false
	}
	for snap.side != c.humanSide() && c.history.Len() > 0 {
		snap, _ = c.history.Pop()
	}
	if err := c.eng.Deserialize(snap.fen); err != nil {
		c.log.Error().Err(err).Str("fen", snap.fen).Msg("failed to restore snapshot")
		return false
	}
	c.selected, c.lastMove = core.NoSquare, core.NoMove
	c.outcome = core.OutcomeOngoing
	c.moves = c.moves[:snap.ply]
	c.enterTurn(ResetRetract)
	return true
}

func (c *Controller) enterTurn(reason ResetReason) {
	c.publish()
	if c.listener != nil {
		c.listener.PositionReset(ResetEvent{Reason: reason, FEN: c.eng.Serialize(), Ply: len(c.moves)})
	}
	c.view.RequestRepaint()
	c.handOff()
}

// OnInput handles a tap on display cell (col, row). It reports whether any
// session state changed.
func (c *Controller) OnInput(col, row int) bool {
	if Thinking(c.thinking.Load()) != Idle || c.outcome != core.OutcomeOngoing {
		return false
	}
	sq, ok := core.CellSquare(col, row)
	if !ok {
		return false
	}
	if c.flipped {
		sq = sq.Flip()
	}
	side := c.eng.SideToMove()
	if side != c.humanSide() {
		return false
	}

	if c.eng.PieceAt(sq).BelongsTo(side) {
		c.selected = sq
		c.lastMove = core.NoMove
		c.publish()
		c.view.RequestRepaint()
		return true
	}
	if c.selected == core.NoSquare {
		return false
	}
	mv := core.NewMove(c.selected, sq)
	if !c.eng.LegalMove(mv) {
		return false
	}
	if !c.play(mv, false) {
		c.log.Error().Str("move", mv.String()).Msg("engine refused a move it reported legal")
		return false
	}
	c.view.RequestRepaint()
	c.handOff()
	return true
}

// play applies mv and runs the terminal check. The pre-move snapshot is
// pushed only when the game goes on.
func (c *Controller) play(mv core.Move, automated bool) bool {
	side := c.eng.SideToMove()
	pre := c.eng.Serialize()
	if !c.eng.ApplyMove(mv) {
		return false
	}
	c.lastMove = mv
	c.selected = core.NoSquare
	capture := c.eng.LastMoveWasCapture()
	if capture {
		c.eng.MarkIrreversible()
	}
	c.moves = append(c.moves, mv)

	switch {
	case c.eng.IsCheckmate():
		c.outcome = core.OutcomeCheckmate
	case c.eng.RepetitionStatus(3) > 0:
		c.outcome = core.OutcomeRepetition
	default:
		c.history.Push(snapshot{fen: pre, side: side, ply: len(c.moves) - 1})
	}
	c.publish()

	if c.outcome != core.OutcomeOngoing {
		c.log.Info().Str("outcome", c.outcome.String()).Int("ply", len(c.moves)).Msg("game over")
	}
	if c.listener != nil {
		c.listener.MoveApplied(MoveEvent{
			Move:      mv,
			Side:      side,
			Ply:       len(c.moves),
			FEN:       c.eng.Serialize(),
			Capture:   capture,
			Automated: automated,
			Outcome:   c.outcome,
		})
	}
	return true
}

// handOff starts the engine's search when it is the engine's turn.
func (c *Controller) handOff() {
	if c.outcome != core.OutcomeOngoing || c.eng.SideToMove() == c.humanSide() {
		return
	}
	budget := Budget(c.cfg.Level)
	c.thinking.Store(int32(Searching))
	c.searches.Add(1)
	c.log.Debug().Int("budget_ms", budget).Msg("search started")
	c.run(func() {
		defer c.searches.Done()
		mv := c.eng.Search(budget)
		c.thinking.Store(int32(Applying))
		if mv == core.NoMove || !c.eng.LegalMove(mv) || !c.play(mv, true) {
			c.log.Error().Str("move", mv.String()).Msg("search produced no playable move")
		}
		c.thinking.Store(int32(Idle))
		c.view.RequestRepaintAsync()
	})
}

func (c *Controller) humanSide() core.Side {
	if c.cfg.Flipped {
		return core.Black
	}
	return core.Red
}

// Thinking reports whether a search is running or being applied.
func (c *Controller) Thinking() bool {
	return Thinking(c.thinking.Load()) != Idle
}

// Wait blocks until no search is running.
func (c *Controller) Wait() {
	c.searches.Wait()
}

// Outcome is the result of the last applied move.
func (c *Controller) Outcome() core.Outcome {
	return c.frame.Load().outcome
}
