// Package xiangqi implements Chinese chess rules, a time-limited alpha-beta
// search and a text opening book behind the session engine contract.
package xiangqi

import (
	_ "embed"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xiangqi/internal/core"
)

//go:embed book.txt
var defaultBook string

// DefaultBook parses the embedded opening book.
func DefaultBook() (*Book, error) {
	return LoadBook(strings.NewReader(defaultBook))
}

// Engine owns one position for one session.
type Engine struct {
	pos  *Position
	book *Book
	rng  *rand.Rand
	log  zerolog.Logger
}

type Option func(*Engine)

// WithLogger receives search progress at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSeed makes book choices reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New returns an engine at the standard start. book may be nil.
func New(book *Book, opts ...Option) *Engine {
	e := &Engine{
		pos:  NewPosition(),
		book: book,
		rng:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) LegalMove(mv core.Move) bool {
	return e.pos.LegalMove(mv)
}

// ApplyMove plays mv. It fails for anything LegalMove rejects.
func (e *Engine) ApplyMove(mv core.Move) bool {
	if !e.pos.pseudoLegal(mv) {
		return false
	}
	return e.pos.MakeMove(mv)
}

// LegalMoves lists every legal move for the side to move.
func (e *Engine) LegalMoves() []core.Move {
	return e.pos.LegalMoves()
}

func (e *Engine) LastMoveWasCapture() bool {
	return e.pos.LastCaptured() != core.NoPiece
}

func (e *Engine) MarkIrreversible() {
	e.pos.SetIrreversible()
}

func (e *Engine) IsCheckmate() bool {
	return e.pos.IsMate()
}

func (e *Engine) RepetitionStatus(recur int) int {
	return e.pos.RepStatus(recur)
}

func (e *Engine) Serialize() string {
	return e.pos.FEN()
}

func (e *Engine) Deserialize(text string) error {
	return e.pos.FromFEN(text)
}

func (e *Engine) PieceAt(sq core.Square) core.Piece {
	return e.pos.PieceAt(sq)
}

func (e *Engine) SideToMove() core.Side {
	return e.pos.Side()
}

// Search returns the best move found within budget milliseconds, consulting
// the book first. The engine's own position is not modified.
func (e *Engine) Search(budget int) core.Move {
	if mv := e.book.Probe(e.pos, e.rng); mv != core.NoMove {
		e.log.Debug().Str("move", mv.String()).Msg("book move")
		return mv
	}
	limit := time.Duration(budget) * time.Millisecond
	s := newSearcher(e.pos.Clone(), limit, e.log)
	return s.run(limit)
}
