package xiangqi

import (
	"xiangqi/internal/core"
)

// Repetition status bits returned by RepStatus.
const (
	RepDetected = 1
	RepOwnCheck = 2 // side to move gave every check in the cycle
	RepOppCheck = 4 // opponent gave every check in the cycle
)

type moveRecord struct {
	mv       core.Move
	captured core.Piece
	key      uint64 // key before the move
	check    bool   // move gave check
}

// Position is a mutable Xiangqi board with an undo stack.
type Position struct {
	squares  [256]core.Piece
	side     core.Side
	key      uint64
	kings    [2]int
	valRed   int
	valBlack int
	moves    []moveRecord
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	p := &Position{}
	if err := p.FromFEN(core.StartingFEN); err != nil {
		panic(err)
	}
	return p
}

// Clone returns an independent copy including the undo stack.
func (p *Position) Clone() *Position {
	c := *p
	c.moves = append(make([]moveRecord, 0, cap(p.moves)), p.moves...)
	return &c
}

func (p *Position) clear() {
	p.squares = [256]core.Piece{}
	p.side = core.Red
	p.key = 0
	p.kings = [2]int{}
	p.valRed, p.valBlack = 0, 0
	p.moves = p.moves[:0]
}

// SetIrreversible truncates the repetition window at the current position.
func (p *Position) SetIrreversible() {
	p.moves = append(p.moves[:0], moveRecord{check: p.checked(p.side)})
}

func (p *Position) Side() core.Side { return p.side }

func (p *Position) Key() uint64 { return p.key }

func (p *Position) PieceAt(sq core.Square) core.Piece {
	return p.squares[sq]
}

func (p *Position) addPiece(sq int, pc core.Piece) {
	p.squares[sq] = pc
	p.key ^= zobristPiece[pc][sq]
	if pc.Side() == core.Red {
		p.valRed += pst[pc.Kind()][sq]
	} else {
		p.valBlack += pst[pc.Kind()][254-sq]
	}
	if pc.Kind() == core.King {
		p.kings[pc.Side()] = sq
	}
}

func (p *Position) delPiece(sq int, pc core.Piece) {
	p.squares[sq] = core.NoPiece
	p.key ^= zobristPiece[pc][sq]
	if pc.Side() == core.Red {
		p.valRed -= pst[pc.Kind()][sq]
	} else {
		p.valBlack -= pst[pc.Kind()][254-sq]
	}
	if pc.Kind() == core.King && p.kings[pc.Side()] == sq {
		p.kings[pc.Side()] = 0
	}
}

func (p *Position) changeSide() {
	p.side = p.side.Opponent()
	p.key ^= zobristSide
}

func (p *Position) movePiece(mv core.Move) core.Piece {
	src, dst := int(mv.Src()), int(mv.Dst())
	captured := p.squares[dst]
	if captured != core.NoPiece {
		p.delPiece(dst, captured)
	}
	pc := p.squares[src]
	p.delPiece(src, pc)
	p.addPiece(dst, pc)
	return captured
}

func (p *Position) undoMovePiece(mv core.Move, captured core.Piece) {
	src, dst := int(mv.Src()), int(mv.Dst())
	pc := p.squares[dst]
	p.delPiece(dst, pc)
	p.addPiece(src, pc)
	if captured != core.NoPiece {
		p.addPiece(dst, captured)
	}
}

// MakeMove plays a pseudo-legal move. It returns false, leaving the position
// untouched, when the move would leave the mover in check.
func (p *Position) MakeMove(mv core.Move) bool {
	key := p.key
	captured := p.movePiece(mv)
	if p.checked(p.side) {
		p.undoMovePiece(mv, captured)
		return false
	}
	p.changeSide()
	p.moves = append(p.moves, moveRecord{mv: mv, captured: captured, key: key, check: p.checked(p.side)})
	return true
}

// UndoMakeMove takes back the last MakeMove.
func (p *Position) UndoMakeMove() {
	if len(p.moves) == 0 || p.moves[len(p.moves)-1].mv == core.NoMove {
		return
	}
	rec := p.moves[len(p.moves)-1]
	p.moves = p.moves[:len(p.moves)-1]
	p.changeSide()
	p.undoMovePiece(rec.mv, rec.captured)
}

// LastCaptured returns the piece taken by the last move, if any.
func (p *Position) LastCaptured() core.Piece {
	if len(p.moves) == 0 {
		return core.NoPiece
	}
	return p.moves[len(p.moves)-1].captured
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.checked(p.side)
}

// checked reports whether side's king is attacked, including by the facing king.
func (p *Position) checked(side core.Side) bool {
	sq := p.kings[side]
	if sq == 0 {
		return false
	}
	opp := side.Opponent().Tag()

	if p.squares[forward(sq, side)] == opp+core.Piece(core.Pawn) ||
		p.squares[sq-1] == opp+core.Piece(core.Pawn) ||
		p.squares[sq+1] == opp+core.Piece(core.Pawn) {
		return true
	}

	for i := 0; i < 4; i++ {
		if p.squares[sq+advisorDelta[i]] != core.NoPiece {
			continue
		}
		for j := 0; j < 2; j++ {
			if p.squares[sq+knightCheckDelta[i][j]] == opp+core.Piece(core.Knight) {
				return true
			}
		}
	}

	for i := 0; i < 4; i++ {
		delta := kingDelta[i]
		dst := sq + delta
		for inBoard[dst] && p.squares[dst] == core.NoPiece {
			dst += delta
		}
		if !inBoard[dst] {
			continue
		}
		pc := p.squares[dst]
		if pc == opp+core.Piece(core.Rook) || pc == opp+core.Piece(core.King) {
			return true
		}
		dst += delta
		for inBoard[dst] && p.squares[dst] == core.NoPiece {
			dst += delta
		}
		if inBoard[dst] && p.squares[dst] == opp+core.Piece(core.Cannon) {
			return true
		}
	}
	return false
}

// GenerateMoves lists pseudo-legal moves for the side to move.
func (p *Position) GenerateMoves(capturesOnly bool) []core.Move {
	moves := make([]core.Move, 0, 64)
	self := p.side.Tag()
	for sq := 0; sq < 256; sq++ {
		if p.squares[sq]&self == 0 {
			continue
		}
		moves = p.genPiece(sq, capturesOnly, moves)
	}
	return moves
}

// LegalMoves lists fully legal moves for the side to move.
func (p *Position) LegalMoves() []core.Move {
	pseudo := p.GenerateMoves(false)
	legal := pseudo[:0]
	for _, mv := range pseudo {
		if p.MakeMove(mv) {
			p.UndoMakeMove()
			legal = append(legal, mv)
		}
	}
	return legal
}

func (p *Position) target(dst int, capturesOnly bool) bool {
	pc := p.squares[dst]
	if pc&p.side.Tag() != 0 {
		return false
	}
	return !capturesOnly || pc != core.NoPiece
}

func (p *Position) genPiece(src int, capturesOnly bool, out []core.Move) []core.Move {
	pc := p.squares[src]
	add := func(dst int) {
		out = append(out, core.NewMove(core.Square(src), core.Square(dst)))
	}
	switch pc.Kind() {
	case core.King:
		for _, d := range kingDelta {
			if dst := src + d; inFort[dst] && p.target(dst, capturesOnly) {
				add(dst)
			}
		}
	case core.Advisor:
		for _, d := range advisorDelta {
			if dst := src + d; inFort[dst] && p.target(dst, capturesOnly) {
				add(dst)
			}
		}
	case core.Bishop:
		for _, d := range advisorDelta {
			eye := src + d
			dst := eye + d
			if inBoard[dst] && homeHalf(dst, p.side) && p.squares[eye] == core.NoPiece && p.target(dst, capturesOnly) {
				add(dst)
			}
		}
	case core.Knight:
		for i, d := range kingDelta {
			if p.squares[src+d] != core.NoPiece {
				continue
			}
			for _, kd := range knightDelta[i] {
				if dst := src + kd; inBoard[dst] && p.target(dst, capturesOnly) {
					add(dst)
				}
			}
		}
	case core.Rook:
		for _, d := range kingDelta {
			dst := src + d
			for inBoard[dst] {
				if p.squares[dst] == core.NoPiece {
					if !capturesOnly {
						add(dst)
					}
				} else {
					if p.target(dst, true) {
						add(dst)
					}
					break
				}
				dst += d
			}
		}
	case core.Cannon:
		for _, d := range kingDelta {
			dst := src + d
			for inBoard[dst] && p.squares[dst] == core.NoPiece {
				if !capturesOnly {
					add(dst)
				}
				dst += d
			}
			dst += d
			for inBoard[dst] && p.squares[dst] == core.NoPiece {
				dst += d
			}
			if inBoard[dst] && p.target(dst, true) {
				add(dst)
			}
		}
	case core.Pawn:
		if dst := forward(src, p.side); inBoard[dst] && p.target(dst, capturesOnly) {
			add(dst)
		}
		if !homeHalf(src, p.side) {
			for _, dst := range [2]int{src - 1, src + 1} {
				if inBoard[dst] && p.target(dst, capturesOnly) {
					add(dst)
				}
			}
		}
	}
	return out
}

// pseudoLegal reports whether mv follows the piece's movement rules, ignoring checks.
func (p *Position) pseudoLegal(mv core.Move) bool {
	if !mv.Valid() {
		return false
	}
	src := int(mv.Src())
	if p.squares[src]&p.side.Tag() == 0 {
		return false
	}
	for _, m := range p.genPiece(src, false, nil) {
		if m == mv {
			return true
		}
	}
	return false
}

// LegalMove reports whether mv may be played, including the self-check test.
func (p *Position) LegalMove(mv core.Move) bool {
	if !p.pseudoLegal(mv) {
		return false
	}
	captured := p.movePiece(mv)
	ok := !p.checked(p.side)
	p.undoMovePiece(mv, captured)
	return ok
}

// IsMate reports whether the side to move has no legal move.
func (p *Position) IsMate() bool {
	for _, mv := range p.GenerateMoves(false) {
		captured := p.movePiece(mv)
		ok := !p.checked(p.side)
		p.undoMovePiece(mv, captured)
		if ok {
			return false
		}
	}
	return true
}

// RepStatus walks back through reversible moves looking for the current
// position recur more times with the same side to move. It returns 0 or
// RepDetected combined with the perpetual-check bits.
func (p *Position) RepStatus(recur int) int {
	self := false
	ownCheck, oppCheck := true, true
	for i := len(p.moves) - 1; i >= 0; i-- {
		rec := p.moves[i]
		if rec.mv == core.NoMove || rec.captured != core.NoPiece {
			break
		}
		if self {
			ownCheck = ownCheck && rec.check
			if rec.key == p.key {
				recur--
				if recur == 0 {
					status := RepDetected
					if ownCheck {
						status |= RepOwnCheck
					}
					if oppCheck {
						status |= RepOppCheck
					}
					return status
				}
			}
		} else {
			oppCheck = oppCheck && rec.check
		}
		self = !self
	}
	return 0
}

// Evaluate scores the position from the side to move's point of view.
func (p *Position) Evaluate() int {
	const tempo = 3
	if p.side == core.Red {
		return p.valRed - p.valBlack + tempo
	}
	return p.valBlack - p.valRed + tempo
}
