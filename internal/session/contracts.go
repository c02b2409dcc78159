package session

import "xiangqi/internal/core"

// Engine is the rules and search capability a session drives. Implementations
// need not be safe for concurrent use: the controller guarantees a single
// caller at a time.
type Engine interface {
	LegalMove(mv core.Move) bool
	// ApplyMove fails only when the engine disagrees with its own LegalMove.
	ApplyMove(mv core.Move) bool
	LastMoveWasCapture() bool
	MarkIrreversible()
	IsCheckmate() bool
	// RepetitionStatus is positive when the position recurred recur times.
	RepetitionStatus(recur int) int
	Serialize() string
	Deserialize(text string) error
	PieceAt(sq core.Square) core.Piece
	SideToMove() core.Side
	// Search blocks for roughly budget milliseconds.
	Search(budget int) core.Move
}

// Canvas receives one rendered frame in display cells.
type Canvas interface {
	DrawPiece(pc core.Piece, col, row int)
	DrawHighlight(col, row int)
}

// View is asked to redraw after state changes.
type View interface {
	RequestRepaint()
	// RequestRepaintAsync may be called from the search goroutine.
	RequestRepaintAsync()
}

// MoveEvent describes one applied move.
type MoveEvent struct {
	Move      core.Move
	Side      core.Side
	Ply       int // 1-based index of the move within the session
	FEN       string
	Capture   bool
	Automated bool
	Outcome   core.Outcome
}

type ResetReason int

const (
	ResetStart ResetReason = iota
	ResetRestart
	ResetRetract
)

func (r ResetReason) String() string {
	switch r {
	case ResetRestart:
		return "restart"
	case ResetRetract:
		return "retract"
	default:
		return "start"
	}
}

// ResetEvent reports that the position was reloaded. Ply is the number of
// moves that remain in the session's move list.
type ResetEvent struct {
	Reason ResetReason
	FEN    string
	Ply    int
}

// Listener observes the session. Calls come from whichever goroutine owns
// the turn and must not call back into the controller.
type Listener interface {
	MoveApplied(MoveEvent)
	PositionReset(ResetEvent)
}
