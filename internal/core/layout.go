package core

// Layout is a named starting position.
type Layout struct {
	Name string
	FEN  string
}

// Layout selectors, indexes into Layouts.
const (
	LayoutStandard = iota
	LayoutLeftKnightHandicap
	LayoutTwoKnightHandicap
	LayoutNinePieceHandicap
)

// StartingFEN is the standard opening array.
const StartingFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"

// Layouts are indexed by the session's layout selector. Handicap layouts remove Black
// pieces, so the automated side gives the odds in the default orientation.
var Layouts = []Layout{
	{Name: "standard", FEN: StartingFEN},
	// Black's left is the h-file from Red's view.
	{Name: "left-knight handicap", FEN: "rnbakab1r/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"},
	{Name: "two-knight handicap", FEN: "r1bakab1r/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"},
	// Both knights, both cannons and all five pawns.
	{Name: "nine-piece handicap", FEN: "r1bakab1r/9/9/9/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"},
}
