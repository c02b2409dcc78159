package core

import "fmt"

// Move packs a source and destination square into one comparable value.
// The low byte is the source, the high byte the destination.
type Move uint16

// NoMove is the zero move.
const NoMove Move = 0

// NewMove packs src and dst.
func NewMove(src, dst Square) Move {
	return Move(src) | Move(dst)<<8
}

// Src returns the source square.
func (m Move) Src() Square { return Square(m & 0xff) }

// Dst returns the destination square.
func (m Move) Dst() Square { return Square(m >> 8) }

// Valid reports whether both ends are usable squares and differ.
// It says nothing about legality.
func (m Move) Valid() bool {
	return m.Src().InBoard() && m.Dst().InBoard() && m.Src() != m.Dst()
}

// Flip mirrors both ends through the board centre.
func (m Move) Flip() Move {
	return NewMove(m.Src().Flip(), m.Dst().Flip())
}

// Mirror reflects both ends left to right.
func (m Move) Mirror() Move {
	return NewMove(m.Src().Mirror(), m.Dst().Mirror())
}

// Mirror reflects the square across the central file.
func (sq Square) Mirror() Square {
	return CoordXY(FileLeft+FileRight-sq.X(), sq.Y())
}

// String renders the move in ICCS notation, e.g. "h2e2".
func (m Move) String() string {
	if m == NoMove {
		return ""
	}
	return m.Src().String() + m.Dst().String()
}

// ParseMove reads an ICCS move. Both "h2e2" and "h2-e2" are accepted.
func ParseMove(s string) (Move, error) {
	if len(s) == 5 && s[2] == '-' {
		s = s[:2] + s[3:]
	}
	if len(s) != 4 {
		return NoMove, fmt.Errorf("invalid move %q", s)
	}
	src, err := ParseSquare(s[:2])
	if err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", s, err)
	}
	dst, err := ParseSquare(s[2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", s, err)
	}
	mv := NewMove(src, dst)
	if !mv.Valid() {
		return NoMove, fmt.Errorf("invalid move %q: source equals destination", s)
	}
	return mv, nil
}
