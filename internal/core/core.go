package core

// Side is one of the two players. Red always moves first.
type Side uint8

const (
	Red Side = iota
	Black
)

// Tag is the bit every piece of this side carries.
func (s Side) Tag() Piece {
	return Piece(8 + s<<3)
}

func (s Side) Opponent() Side {
	return s ^ 1
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "red"
}

// Kind is a piece type without colour.
type Kind uint8

const (
	King Kind = iota
	Advisor
	Bishop
	Knight
	Rook
	Cannon
	Pawn
)

var kindNames = [...]string{"king", "advisor", "bishop", "knight", "rook", "cannon", "pawn"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Piece is side tag (8 red, 16 black) plus kind. Zero is an empty square.
type Piece uint8

const NoPiece Piece = 0

// MakePiece combines a side and a kind.
func MakePiece(s Side, k Kind) Piece {
	return s.Tag() + Piece(k)
}

func (p Piece) Side() Side {
	if p&16 != 0 {
		return Black
	}
	return Red
}

func (p Piece) Kind() Kind {
	return Kind(p & 7)
}

// BelongsTo reports whether the piece is owned by side s. Empty squares belong to nobody.
func (p Piece) BelongsTo(s Side) bool {
	return p&s.Tag() != 0
}

const fenLetters = "KABNRCP"

// Letter returns the FEN letter, upper case for Red.
func (p Piece) Letter() byte {
	if p == NoPiece {
		return '.'
	}
	c := fenLetters[p.Kind()]
	if p.Side() == Black {
		c += 'a' - 'A'
	}
	return c
}

var glyphs = [2][7]rune{
	{'帅', '仕', '相', '马', '车', '炮', '兵'},
	{'将', '士', '象', '马', '车', '炮', '卒'},
}

// Glyph returns the traditional Chinese character for the piece.
func (p Piece) Glyph() rune {
	if p == NoPiece {
		return '·'
	}
	return glyphs[p.Side()][p.Kind()]
}

// PieceFromLetter parses a FEN letter. "H" and "E" are accepted for knight and bishop.
func PieceFromLetter(c byte) (Piece, bool) {
	side := Red
	if c >= 'a' && c <= 'z' {
		side = Black
		c -= 'a' - 'A'
	}
	switch c {
	case 'H':
		c = 'N'
	case 'E':
		c = 'B'
	}
	for k := 0; k < len(fenLetters); k++ {
		if fenLetters[k] == c {
			return MakePiece(side, Kind(k)), true
		}
	}
	return NoPiece, false
}

// Outcome describes whether the session can still progress.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeCheckmate
	OutcomeRepetition
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCheckmate:
		return "checkmate"
	case OutcomeRepetition:
		return "repetition"
	default:
		return "ongoing"
	}
}
