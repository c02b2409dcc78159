package xiangqi

import (
	"errors"
	"fmt"
	"strings"

	"xiangqi/internal/core"
)

var ErrInvalidFEN = errors.New("invalid FEN")

// FromFEN replaces the position. The move stack restarts, so the loaded
// position is a repetition boundary.
func (p *Position) FromFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	rows := strings.Split(fields[0], "/")
	if len(rows) != core.Ranks {
		return fmt.Errorf("%w: expected %d ranks, got %d", ErrInvalidFEN, core.Ranks, len(rows))
	}

	var next Position
	next.moves = p.moves[:0]
	next.clear()
	kings := [2]int{}
	for r, row := range rows {
		y := core.RankTop + r
		x := core.FileLeft
		for i := 0; i < len(row); i++ {
			c := row[i]
			if c >= '1' && c <= '9' {
				x += int(c - '0')
				continue
			}
			pc, ok := core.PieceFromLetter(c)
			if !ok {
				return fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, c)
			}
			if x > core.FileRight {
				return fmt.Errorf("%w: rank %d too long", ErrInvalidFEN, core.Ranks-1-r)
			}
			if pc.Kind() == core.King {
				kings[pc.Side()]++
			}
			next.addPiece(int(core.CoordXY(x, y)), pc)
			x++
		}
		if x != core.FileRight+1 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, core.Ranks-1-r, x-core.FileLeft)
		}
	}
	if kings[core.Red] != 1 || kings[core.Black] != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}

	if len(fields) > 1 {
		switch fields[1] {
		case "w", "r":
		case "b":
			next.changeSide()
		default:
			return fmt.Errorf("%w: bad side %q", ErrInvalidFEN, fields[1])
		}
	}
	next.SetIrreversible()
	*p = next
	return nil
}

// FEN serialises piece layout and side to move.
func (p *Position) FEN() string {
	var sb strings.Builder
	for y := core.RankTop; y <= core.RankBottom; y++ {
		empty := 0
		for x := core.FileLeft; x <= core.FileRight; x++ {
			pc := p.squares[core.CoordXY(x, y)]
			if pc == core.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pc.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y < core.RankBottom {
			sb.WriteByte('/')
		}
	}
	if p.side == core.Red {
		sb.WriteString(" w")
	} else {
		sb.WriteString(" b")
	}
	sb.WriteString(" - - 0 1")
	return sb.String()
}
