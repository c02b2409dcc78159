package session

import (
	"slices"

	"xiangqi/internal/core"
)

// frame is an immutable copy of everything readers need. The turn owner
// publishes a fresh one after every change.
type frame struct {
	board    [core.Files][core.Ranks]core.Piece // engine orientation, by cell
	fen      string
	side     core.Side
	selected core.Square
	lastMove core.Move
	moves    []core.Move
	history  int
	outcome  core.Outcome
	flipped  bool
}

func (c *Controller) publish() {
	f := &frame{
		fen:      c.eng.Serialize(),
		side:     c.eng.SideToMove(),
		selected: c.selected,
		lastMove: c.lastMove,
		moves:    slices.Clone(c.moves),
		history:  c.history.Len(),
		outcome:  c.outcome,
		flipped:  c.flipped,
	}
	for col := 0; col < core.Files; col++ {
		for row := 0; row < core.Ranks; row++ {
			sq, _ := core.CellSquare(col, row)
			f.board[col][row] = c.eng.PieceAt(sq)
		}
	}
	c.frame.Store(f)
}

// display maps an engine square to the cell it is drawn in.
func (f *frame) display(sq core.Square) (int, int) {
	if f.flipped {
		sq = sq.Flip()
	}
	return sq.Cell()
}

// DrawBoard renders the last published position. Pieces go file by file,
// then highlights for the selection and both ends of the last move.
func (c *Controller) DrawBoard(cv Canvas) {
	f := c.frame.Load()
	for col := 0; col < core.Files; col++ {
		for row := 0; row < core.Ranks; row++ {
			sq, _ := core.CellSquare(col, row)
			if f.flipped {
				sq = sq.Flip()
			}
			ec, er := sq.Cell()
			if pc := f.board[ec][er]; pc != core.NoPiece {
				cv.DrawPiece(pc, col, row)
			}
		}
	}
	for _, sq := range []core.Square{f.selected, f.lastMove.Src(), f.lastMove.Dst()} {
		if sq.InBoard() {
			cv.DrawHighlight(f.display(sq))
		}
	}
}

// Snapshot is a consistent read of session state.
type Snapshot struct {
	FEN        string
	SideToMove core.Side
	Human      core.Side
	Selected   core.Square // NoSquare when nothing is selected
	LastMove   core.Move
	Moves      []core.Move
	Thinking   bool
	History    int
	Outcome    core.Outcome
	Flipped    bool
	Level      int
	Layout     int
}

// State returns the last published state. Safe during a search.
func (c *Controller) State() Snapshot {
	f := c.frame.Load()
	return Snapshot{
		FEN:        f.fen,
		SideToMove: f.side,
		Human:      c.humanSide(),
		Selected:   f.selected,
		LastMove:   f.lastMove,
		Moves:      slices.Clone(f.moves),
		Thinking:   c.Thinking(),
		History:    f.history,
		Outcome:    f.outcome,
		Flipped:    f.flipped,
		Level:      c.cfg.Level,
		Layout:     c.cfg.Layout,
	}
}
