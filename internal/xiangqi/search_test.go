package xiangqi

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xiangqi/internal/core"
)

func TestSearchFindsMateInOne(t *testing.T) {
	e := New(nil)
	if err := e.Deserialize("4k4/R8/9/9/9/9/9/9/9/1R1K5 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	mv := e.Search(300)
	if mv == core.NoMove {
		t.Fatal("expected a move")
	}
	if !e.ApplyMove(mv) {
		t.Fatalf("search returned illegal move %s", mv)
	}
	if !e.IsCheckmate() {
		t.Fatalf("%s does not mate", mv)
	}
}

func TestSearchLeavesPositionUntouched(t *testing.T) {
	e := New(nil)
	before := e.Serialize()
	mv := e.Search(100)
	if !e.LegalMove(mv) {
		t.Fatalf("search returned illegal move %s", mv)
	}
	if e.Serialize() != before {
		t.Fatal("search modified the engine position")
	}
}

func TestSearchWithoutMoves(t *testing.T) {
	e := New(nil)
	if err := e.Deserialize("1R2k4/R8/9/9/9/9/9/9/9/3K5 b - - 0 1"); err != nil {
		t.Fatal(err)
	}
	if mv := e.Search(100); mv != core.NoMove {
		t.Fatalf("mated side returned %s", mv)
	}
}

func TestSearchPrefersMateOverCapture(t *testing.T) {
	// Taking the a9 rook wins material, but d0 mates: the facing kings
	// keep the black king off e9.
	e := New(nil)
	if err := e.Deserialize("r2k5/9/9/9/9/9/9/9/9/R3K4 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	mv := e.Search(300)
	if !e.ApplyMove(mv) {
		t.Fatalf("search returned illegal move %s", mv)
	}
	if !e.IsCheckmate() {
		t.Fatalf("expected a mating move, got %s", mv)
	}
}

func TestSearchTakesHangingRook(t *testing.T) {
	// The rooks face each other on the open a-file and no mate exists.
	e := New(nil)
	if err := e.Deserialize("r3k4/4a4/9/9/9/9/9/9/9/R2K5 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	mv := e.Search(300)
	if mv.String() != "a0a9" {
		t.Fatalf("expected a0a9, got %s", mv)
	}
}

func TestLoadDefaultBook(t *testing.T) {
	book, err := DefaultBook()
	if err != nil {
		t.Fatalf("DefaultBook: %v", err)
	}
	if book.Skipped() != 0 {
		t.Fatalf("embedded book has %d bad lines", book.Skipped())
	}
	e := New(book, WithSeed(7))
	mv := e.Search(100)
	if !e.LegalMove(mv) {
		t.Fatalf("book move %s is illegal", mv)
	}
	openings := map[string]bool{
		"h2e2": true, "b2e2": true, "c3c4": true, "g3g4": true,
		"h0g2": true, "b0c2": true, "c0e2": true, "g0e2": true,
	}
	if !openings[mv.String()] {
		t.Fatalf("unexpected opening %s", mv)
	}
}

func TestLoadBookSkipsBadLines(t *testing.T) {
	text := strings.Join([]string{
		"# comment",
		"",
		": h2e2 10",
		"h2e2 : zz99 3",    // unparsable reply
		"h2e2 : h9h7 3",    // illegal reply
		"h2e2 h2e3 : h9g7", // illegal prefix
		"no colon here",
		"h2e2 : h9g7 -1", // bad weight
		"h2e2 : h9g7",
	}, "\n")
	book, err := LoadBook(strings.NewReader(text))
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	if book.Lines() != 2 || book.Skipped() != 5 {
		t.Fatalf("Lines=%d Skipped=%d", book.Lines(), book.Skipped())
	}

	e := New(book, WithSeed(1))
	if !e.ApplyMove(e.Search(100)) {
		t.Fatal("first book move rejected")
	}
	if got := e.Search(100).String(); got != "h9g7" && got != "b9c7" {
		t.Fatalf("expected book reply, got %s", got)
	}
}

func TestLoadBookEmpty(t *testing.T) {
	_, err := LoadBook(strings.NewReader("# nothing\nbad line\n"))
	if !errors.Is(err, ErrEmptyBook) {
		t.Fatalf("expected ErrEmptyBook, got %v", err)
	}
}

func TestOpenBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.txt")
	if err := os.WriteFile(path, []byte(": c3c4 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	book, err := OpenBook(path)
	if err != nil {
		t.Fatalf("OpenBook: %v", err)
	}
	if got := New(book).Search(100).String(); got != "c3c4" && got != "g3g4" {
		t.Fatalf("book move = %s", got)
	}
	if _, err := OpenBook(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestEngineCaptureAndIrreversible(t *testing.T) {
	e := New(nil)
	mv, _ := core.ParseMove("h2h9")
	if !e.ApplyMove(mv) {
		t.Fatal("capture rejected")
	}
	if !e.LastMoveWasCapture() {
		t.Fatal("expected capture")
	}
	e.MarkIrreversible()
	if e.RepetitionStatus(1) != 0 {
		t.Fatal("no repetition after irreversible point")
	}
	if e.SideToMove() != core.Black {
		t.Fatal("black to move")
	}
	if e.PieceAt(mv.Dst()) != core.MakePiece(core.Red, core.Cannon) {
		t.Fatal("cannon should stand on h9")
	}
}
