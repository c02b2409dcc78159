// Package render draws session frames as text.
package render

import (
	"fmt"
	"strings"

	"xiangqi/internal/core"
	"xiangqi/internal/session"
)

// TextCanvas collects one frame in display cells and prints it as ASCII.
type TextCanvas struct {
	cells     [core.Ranks][core.Files]core.Piece
	highlight [core.Ranks][core.Files]bool
	flipped   bool
	glyphs    bool
}

var _ session.Canvas = (*TextCanvas)(nil)

// NewTextCanvas returns an empty canvas. flipped only affects the edge labels;
// glyphs prints Chinese characters instead of FEN letters.
func NewTextCanvas(flipped, glyphs bool) *TextCanvas {
	return &TextCanvas{flipped: flipped, glyphs: glyphs}
}

func (t *TextCanvas) DrawPiece(pc core.Piece, col, row int) {
	if col >= 0 && col < core.Files && row >= 0 && row < core.Ranks {
		t.cells[row][col] = pc
	}
}

func (t *TextCanvas) DrawHighlight(col, row int) {
	if col >= 0 && col < core.Files && row >= 0 && row < core.Ranks {
		t.highlight[row][col] = true
	}
}

// PieceAt returns what was drawn in a display cell.
func (t *TextCanvas) PieceAt(col, row int) core.Piece {
	return t.cells[row][col]
}

// Highlighted reports whether a display cell was highlighted.
func (t *TextCanvas) Highlighted(col, row int) bool {
	return t.highlight[row][col]
}

func (t *TextCanvas) fileLabel(col int) byte {
	if t.flipped {
		return byte('i' - col)
	}
	return byte('a' + col)
}

func (t *TextCanvas) rankLabel(row int) int {
	if t.flipped {
		return row
	}
	return core.Ranks - 1 - row
}

func (t *TextCanvas) files() string {
	var sb strings.Builder
	sb.WriteString("  ")
	for col := 0; col < core.Files; col++ {
		sb.WriteString(fmt.Sprintf(" %c ", t.fileLabel(col)))
	}
	return sb.String()
}

// String renders the board with file letters and rank digits on the edges.
// Highlighted cells are bracketed.
func (t *TextCanvas) String() string {
	var sb strings.Builder
	sb.WriteString(t.files())
	sb.WriteByte('\n')
	for row := 0; row < core.Ranks; row++ {
		sb.WriteString(fmt.Sprintf("%d ", t.rankLabel(row)))
		for col := 0; col < core.Files; col++ {
			open, closing := " ", " "
			if t.highlight[row][col] {
				open, closing = "[", "]"
			}
			sb.WriteString(open)
			sb.WriteString(t.symbol(t.cells[row][col]))
			sb.WriteString(closing)
		}
		sb.WriteString(fmt.Sprintf(" %d\n", t.rankLabel(row)))
		if row == core.Ranks/2-1 {
			sb.WriteString("  " + strings.Repeat("~~~", core.Files) + "\n")
		}
	}
	sb.WriteString(t.files())
	return sb.String()
}

func (t *TextCanvas) symbol(pc core.Piece) string {
	if t.glyphs {
		return string(pc.Glyph())
	}
	return string(pc.Letter())
}

// Drawer is anything that can paint a frame, normally *session.Controller.
type Drawer interface {
	DrawBoard(session.Canvas)
}

// Board draws d into a fresh canvas and returns the text.
func Board(d Drawer, flipped, glyphs bool) string {
	cv := NewTextCanvas(flipped, glyphs)
	d.DrawBoard(cv)
	return cv.String()
}

// NotifyView forwards repaint requests to a callback. The callback must be
// safe to call from any goroutine.
type NotifyView struct {
	notify func()
}

var _ session.View = (*NotifyView)(nil)

func NewNotifyView(notify func()) *NotifyView {
	if notify == nil {
		notify = func() {}
	}
	return &NotifyView{notify: notify}
}

func (v *NotifyView) RequestRepaint() { v.notify() }

func (v *NotifyView) RequestRepaintAsync() { v.notify() }
