package xiangqi

import (
	"math/rand/v2"

	"golang.org/x/exp/constraints"

	"xiangqi/internal/core"
)

var (
	kingDelta    = [4]int{-16, -1, 1, 16}
	advisorDelta = [4]int{-17, -15, 15, 17}
	// knightDelta[i] are the two destinations whose leg is kingDelta[i].
	knightDelta = [4][2]int{{-33, -31}, {-18, 14}, {-14, 18}, {31, 33}}
	// knightCheckDelta[i] are the two attacker squares whose leg is advisorDelta[i] from the king.
	knightCheckDelta = [4][2]int{{-33, -18}, {-31, -14}, {14, 31}, {18, 33}}
)

var (
	inBoard [256]bool
	inFort  [256]bool

	// pst holds Red's material plus placement value per kind and square; Black reads the flipped square.
	pst [7][256]int

	zobristPiece [23][256]uint64
	zobristSide  uint64
)

// MVV/LVA weights by kind.
var mvvLva = [7]int{5, 1, 1, 3, 4, 3, 2}

var material = [7]int{0, 20, 20, 90, 200, 95, 10}

func init() {
	for i := 0; i < 256; i++ {
		sq := core.Square(i)
		inBoard[i] = sq.InBoard()
		x, y := sq.X(), sq.Y()
		inFort[i] = x >= 6 && x <= 8 && ((y >= 3 && y <= 5) || (y >= 10 && y <= 12))
		if !inBoard[i] {
			continue
		}
		// advance counts ranks from Red's back rank, centre is the distance from the e-file.
		advance := core.RankBottom - y
		centre := 4 - abs(x-7)
		for k := core.King; k <= core.Pawn; k++ {
			pst[k][i] = material[k] + placement(k, advance, centre)
		}
	}

	rng := rand.New(rand.NewPCG(0x5851f42d4c957f2d, 0x14057b7ef767814f))
	for pc := 0; pc < len(zobristPiece); pc++ {
		for sq := 0; sq < 256; sq++ {
			zobristPiece[pc][sq] = rng.Uint64()
		}
	}
	zobristSide = rng.Uint64()
}

func placement(k core.Kind, advance, centre int) int {
	switch k {
	case core.King:
		if centre == 4 {
			return 2
		}
	case core.Bishop, core.Advisor:
		if centre == 4 {
			return 3
		}
	case core.Knight:
		v := centre * 2
		if advance >= 3 && advance <= 7 {
			v += 2 * (advance - 2)
		}
		return v
	case core.Rook:
		v := centre
		if advance >= 5 && advance <= 7 {
			v += 6
		}
		return v
	case core.Cannon:
		if advance == 2 && centre == 4 {
			return 6
		}
		if advance >= 5 {
			return 2
		}
		return centre / 2
	case core.Pawn:
		if advance < 5 {
			return 0
		}
		v := 10 + centre*2
		if advance <= 8 {
			v += (advance - 5) * 5
		} else {
			v += 5
		}
		return v
	}
	return 0
}

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// homeHalf reports whether sq lies on side's own half of the river.
func homeHalf(sq int, side core.Side) bool {
	return (sq&0x80 != 0) == (side == core.Red)
}

// forward is the square one step towards the opponent.
func forward(sq int, side core.Side) int {
	return sq - 16 + int(side)<<5
}
