package core

import "fmt"

// Square indexes the engine's 16x16 padded board: sq = x + y<<4.
// Only the 9x10 sub-rectangle [FileLeft..FileRight] x [RankTop..RankBottom] holds pieces;
// the margin exists so move generation can step off the board without bounds checks.
type Square uint8

const (
	FileLeft   = 3
	FileRight  = 11
	RankTop    = 3
	RankBottom = 12

	Files = FileRight - FileLeft + 1
	Ranks = RankBottom - RankTop + 1
)

// NoSquare is never a usable square and doubles as "nothing selected".
const NoSquare Square = 0

// CoordXY builds a square from padded-space coordinates.
func CoordXY(x, y int) Square {
	return Square(x + y<<4)
}

// X returns the padded-space file of the square.
func (sq Square) X() int { return int(sq) & 15 }

// Y returns the padded-space rank of the square.
func (sq Square) Y() int { return int(sq) >> 4 }

// InBoard reports whether the square lies inside the usable sub-rectangle.
func (sq Square) InBoard() bool {
	x, y := sq.X(), sq.Y()
	return x >= FileLeft && x <= FileRight && y >= RankTop && y <= RankBottom
}

// Flip returns the point-symmetric square about the board centre.
func (sq Square) Flip() Square {
	return 254 - sq
}

// CellSquare maps a display cell (col 0..8 left to right, row 0..9 top to bottom)
// onto an unflipped square. ok is false when the cell is outside the board.
func CellSquare(col, row int) (Square, bool) {
	if col < 0 || col >= Files || row < 0 || row >= Ranks {
		return NoSquare, false
	}
	return CoordXY(col+FileLeft, row+RankTop), true
}

// Cell is the inverse of CellSquare.
func (sq Square) Cell() (col, row int) {
	return sq.X() - FileLeft, sq.Y() - RankTop
}

// String renders the square in ICCS notation, files a..i from Red's left and
// ranks 0..9 from Red's back rank.
func (sq Square) String() string {
	if !sq.InBoard() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+sq.X()-FileLeft, RankBottom-sq.Y())
}

// ParseSquare reads an ICCS square such as "e0".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	file := s[0]
	if file >= 'A' && file <= 'I' {
		file += 'a' - 'A'
	}
	if file < 'a' || file > 'i' || s[1] < '0' || s[1] > '9' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return CoordXY(int(file-'a')+FileLeft, RankBottom-int(s[1]-'0')), nil
}

