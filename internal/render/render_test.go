package render

import (
	"strings"
	"sync/atomic"
	"testing"

	"xiangqi/internal/core"
	"xiangqi/internal/session"
	"xiangqi/internal/xiangqi"
)

func TestBoardFromController(t *testing.T) {
	var repaints atomic.Int32
	view := NewNotifyView(func() { repaints.Add(1) })
	c, err := session.New(xiangqi.New(nil), view, session.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if repaints.Load() == 0 {
		t.Fatal("start should request a repaint")
	}

	c.OnInput(7, 7) // red cannon on h2
	text := Board(c, false, false)
	lines := strings.Split(text, "\n")
	if len(lines) != 13 {
		t.Fatalf("expected 13 lines, got %d:\n%s", len(lines), text)
	}
	if !strings.HasPrefix(lines[1], "9  r  n  b  a  k  a  b  n  r ") {
		t.Fatalf("unexpected black back rank %q", lines[1])
	}
	if !strings.Contains(text, "[C]") {
		t.Fatalf("selected cannon should be bracketed:\n%s", text)
	}
	if !strings.HasPrefix(lines[0], "   a  b  c") {
		t.Fatalf("unexpected file labels %q", lines[0])
	}
}

func TestFlippedLabels(t *testing.T) {
	cv := NewTextCanvas(true, false)
	cv.DrawPiece(core.MakePiece(core.Black, core.King), 4, 9)
	text := cv.String()
	lines := strings.Split(text, "\n")
	if !strings.HasPrefix(lines[0], "   i  h  g") {
		t.Fatalf("flipped file labels %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0 ") {
		t.Fatalf("flipped top rank should be 0: %q", lines[1])
	}
	if cv.PieceAt(4, 9) != core.MakePiece(core.Black, core.King) {
		t.Fatal("piece not recorded")
	}
}

func TestGlyphsAndBounds(t *testing.T) {
	cv := NewTextCanvas(false, true)
	cv.DrawPiece(core.MakePiece(core.Red, core.King), 4, 9)
	cv.DrawPiece(core.MakePiece(core.Red, core.Rook), 42, 0) // ignored
	cv.DrawHighlight(-1, 3)                                   // ignored
	cv.DrawHighlight(4, 9)
	if !strings.Contains(cv.String(), "[帅]") {
		t.Fatalf("expected highlighted glyph:\n%s", cv.String())
	}
	if !cv.Highlighted(4, 9) || cv.Highlighted(0, 3) {
		t.Fatal("highlight bookkeeping wrong")
	}
}
