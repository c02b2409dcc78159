package xiangqi

import (
	"errors"
	"testing"

	"xiangqi/internal/core"
)

func perft(p *Position, depth int) int {
	if depth == 0 {
		return 1
	}
	nodes := 0
	for _, mv := range p.GenerateMoves(false) {
		if p.MakeMove(mv) {
			nodes += perft(p, depth-1)
			p.UndoMakeMove()
		}
	}
	return nodes
}

func mustMove(t *testing.T, s string) core.Move {
	t.Helper()
	mv, err := core.ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return mv
}

func mustPosition(t *testing.T, fen string) *Position {
	t.Helper()
	p := &Position{}
	if err := p.FromFEN(fen); err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return p
}

func TestPerftFromStart(t *testing.T) {
	want := []int{1, 44, 1920, 79666}
	p := NewPosition()
	key := p.Key()
	for depth, n := range want {
		if got := perft(p, depth); got != n {
			t.Fatalf("perft(%d) = %d, want %d", depth, got, n)
		}
	}
	if p.Key() != key || p.FEN() != core.StartingFEN {
		t.Fatal("perft did not restore the position")
	}
}

func TestFENRoundTrip(t *testing.T) {
	p := NewPosition()
	if got := p.FEN(); got != core.StartingFEN {
		t.Fatalf("FEN() = %q", got)
	}
	for _, s := range []string{"h2e2", "h9g7", "h0g2", "i9h9"} {
		mv := mustMove(t, s)
		if !p.LegalMove(mv) || !p.MakeMove(mv) {
			t.Fatalf("move %s rejected", s)
		}
		fen := p.FEN()
		q := mustPosition(t, fen)
		if q.FEN() != fen || q.Side() != p.Side() || q.Key() != p.Key() {
			t.Fatalf("round trip mismatch after %s: %q vs %q", s, q.FEN(), fen)
		}
	}
}

func TestFromFENRejectsGarbage(t *testing.T) {
	for _, fen := range []string{
		"",
		"rnbakabnr/9/9 w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNRR w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAXABNR w",
		"rnba1abnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w",
		"rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR x",
	} {
		p := NewPosition()
		err := p.FromFEN(fen)
		if !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("FromFEN(%q) = %v, want ErrInvalidFEN", fen, err)
		}
		if p.FEN() != core.StartingFEN {
			t.Fatalf("failed FromFEN modified the position: %q", p.FEN())
		}
	}
}

func TestLayoutsParse(t *testing.T) {
	for _, l := range core.Layouts {
		p := mustPosition(t, l.FEN)
		if p.Side() != core.Red {
			t.Fatalf("%s: Red should move first", l.Name)
		}
		if len(p.LegalMoves()) == 0 {
			t.Fatalf("%s: no legal moves", l.Name)
		}
	}
}

func TestHandicapsRemoveBlackPieces(t *testing.T) {
	removed := map[int]int{
		core.LayoutStandard:           0,
		core.LayoutLeftKnightHandicap: 1,
		core.LayoutTwoKnightHandicap:  2,
		core.LayoutNinePieceHandicap:  9,
	}
	for idx, want := range removed {
		p := mustPosition(t, core.Layouts[idx].FEN)
		var red, black int
		for y := core.RankTop; y <= core.RankBottom; y++ {
			for x := core.FileLeft; x <= core.FileRight; x++ {
				pc := p.PieceAt(core.CoordXY(x, y))
				switch {
				case pc.BelongsTo(core.Red):
					red++
				case pc.BelongsTo(core.Black):
					black++
				}
			}
		}
		if red != 16 || black != 16-want {
			t.Fatalf("%s: red=%d black=%d, want 16 and %d", core.Layouts[idx].Name, red, black, 16-want)
		}
	}
}

func TestFlyingGeneral(t *testing.T) {
	p := mustPosition(t, "4k4/9/9/9/9/9/9/9/9/3K5 w - - 0 1")
	if p.LegalMove(mustMove(t, "d0e0")) {
		t.Fatal("king may not face the enemy king on an open file")
	}
	if !p.LegalMove(mustMove(t, "d0d1")) {
		t.Fatal("d0d1 should be legal")
	}
	if p.LegalMove(mustMove(t, "d0c0")) {
		t.Fatal("king may not leave the palace")
	}
}

func TestPieceRules(t *testing.T) {
	p := NewPosition()
	cases := []struct {
		move  string
		legal bool
	}{
		{"h0g2", true},  // knight
		{"h0i2", true},  // knight
		{"h0f1", false}, // knight leg g0 blocked
		{"c0e2", true},  // bishop
		{"c0a2", true},  // bishop
		{"d0e1", true},  // advisor
		{"d0c1", false}, // advisor outside palace
		{"h2h9", true},  // cannon captures knight over h7
		{"b2b9", true},  // cannon captures knight over b7
		{"b2b6", true},  // cannon slide
		{"b2b7", false}, // cannon cannot capture without screen
		{"a3a4", true},  // pawn forward
		{"a3b3", false}, // pawn sideways before the river
		{"a0a2", true},  // rook
		{"a0a3", false}, // rook onto own pawn
		{"e0e1", true},  // king
	}
	for _, tc := range cases {
		if got := p.LegalMove(mustMove(t, tc.move)); got != tc.legal {
			t.Errorf("LegalMove(%s) = %v, want %v", tc.move, got, tc.legal)
		}
	}
}

func TestPawnAfterRiver(t *testing.T) {
	p := mustPosition(t, "4k4/9/9/9/4P4/9/9/9/9/3K5 w - - 0 1")
	for _, s := range []string{"e5e6", "e5d5", "e5f5"} {
		if !p.LegalMove(mustMove(t, s)) {
			t.Fatalf("%s should be legal for a crossed pawn", s)
		}
	}
	if p.LegalMove(mustMove(t, "e5e4")) {
		t.Fatal("pawns never retreat")
	}
}

func TestCheckmateDetection(t *testing.T) {
	p := mustPosition(t, "1R2k4/R8/9/9/9/9/9/9/9/3K5 b - - 0 1")
	if !p.InCheck() {
		t.Fatal("black should be in check")
	}
	if !p.IsMate() {
		t.Fatal("expected mate")
	}
	if len(p.LegalMoves()) != 0 {
		t.Fatal("mated side has legal moves")
	}
	if NewPosition().IsMate() {
		t.Fatal("start position is not mate")
	}
}

func TestRepetition(t *testing.T) {
	p := NewPosition()
	cycle := []string{"h0g2", "h9g7", "g2h0", "g7h9"}
	play := func(n int) {
		for i := 0; i < n; i++ {
			for _, s := range cycle {
				if !p.MakeMove(mustMove(t, s)) {
					t.Fatalf("move %s rejected", s)
				}
			}
		}
	}
	play(1)
	if got := p.RepStatus(1); got != RepDetected {
		t.Fatalf("RepStatus(1) after one cycle = %d", got)
	}
	if got := p.RepStatus(3); got != 0 {
		t.Fatalf("RepStatus(3) after one cycle = %d", got)
	}
	play(2)
	if got := p.RepStatus(3); got&RepDetected == 0 {
		t.Fatalf("RepStatus(3) after three cycles = %d", got)
	}
	p.SetIrreversible()
	if got := p.RepStatus(1); got != 0 {
		t.Fatalf("RepStatus after SetIrreversible = %d", got)
	}
}

func TestQuietRepetitionHasNoCheckBits(t *testing.T) {
	p := mustPosition(t, "4k4/R8/9/9/9/9/9/9/9/3K5 w - - 0 1")
	for i := 0; i < 2; i++ {
		for _, s := range []string{"a8b8", "e9f9", "b8a8", "f9e9"} {
			if !p.MakeMove(mustMove(t, s)) {
				t.Fatalf("move %s rejected", s)
			}
		}
	}
	if got := p.RepStatus(2); got != RepDetected {
		t.Fatalf("RepStatus(2) = %d, want plain repetition", got)
	}
}

func TestUndoRestoresKey(t *testing.T) {
	p := NewPosition()
	key := p.Key()
	p.MakeMove(mustMove(t, "h2h9")) // cannon takes knight
	if p.LastCaptured() != core.MakePiece(core.Black, core.Knight) {
		t.Fatalf("LastCaptured = %v", p.LastCaptured())
	}
	p.UndoMakeMove()
	if p.Key() != key || p.FEN() != core.StartingFEN {
		t.Fatal("undo did not restore the position")
	}
}

func TestPerpetualCheckBits(t *testing.T) {
	p := mustPosition(t, "4k4/R8/9/9/9/9/9/9/9/3K5 w - - 0 1")
	for i := 0; i < 2; i++ {
		for _, s := range []string{"a8a9", "e9e8", "a9a8", "e8e9"} {
			if !p.MakeMove(mustMove(t, s)) {
				t.Fatalf("move %s rejected", s)
			}
		}
	}
	if got := p.RepStatus(2); got != RepDetected|RepOwnCheck {
		t.Fatalf("RepStatus(2) = %d, want %d", got, RepDetected|RepOwnCheck)
	}
}
