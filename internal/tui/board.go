// Package tui is the terminal front end: a tview board that forwards mouse
// and keyboard taps to a session controller.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"xiangqi/internal/core"
	"xiangqi/internal/session"
)

const (
	labelWidth = 3 // rank digit plus padding left of the board
	cellWidth  = 2
	boardWidth = labelWidth + core.Files*cellWidth
	boardRows  = core.Ranks + 1 // plus the file label row
)

var (
	styleBoard     = tcell.StyleDefault.Background(tcell.ColorDarkGoldenrod).Foreground(tcell.ColorBlack)
	styleRed       = styleBoard.Foreground(tcell.ColorDarkRed).Bold(true)
	styleBlack     = styleBoard.Foreground(tcell.ColorBlack).Bold(true)
	styleHighlight = tcell.ColorLightSkyBlue
	styleCursor    = tcell.ColorLightGreen
	styleLabel     = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
)

// Board is both the session's View and its tview widget.
type Board struct {
	Box  *tview.Box
	Info *tview.TextView

	app    *tview.Application
	ctrl   *session.Controller
	glyphs bool

	curCol, curRow int

	mu    sync.Mutex
	moves []string
}

var (
	_ session.View     = (*Board)(nil)
	_ session.Listener = (*Board)(nil)
)

// NewBoard builds the widgets. Attach must be called before the app runs.
func NewBoard(app *tview.Application, glyphs bool) *Board {
	b := &Board{
		Box:    tview.NewBox(),
		Info:   tview.NewTextView().SetDynamicColors(true),
		app:    app,
		glyphs: glyphs,
		curCol: core.Files / 2,
		curRow: core.Ranks - 1,
	}
	b.Box.SetDrawFunc(b.draw)
	b.Box.SetMouseCapture(b.mouse)
	b.Box.SetInputCapture(b.key)
	return b
}

// Attach connects the controller the board drives.
func (b *Board) Attach(c *session.Controller) {
	b.ctrl = c
	b.refreshInfo()
}

// RequestRepaint runs on the UI goroutine; tview redraws after the handler returns.
func (b *Board) RequestRepaint() {
	b.refreshInfo()
}

// RequestRepaintAsync is called from the search goroutine.
func (b *Board) RequestRepaintAsync() {
	go b.app.QueueUpdateDraw(b.refreshInfo)
}

func (b *Board) MoveApplied(ev session.MoveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moves = append(b.moves[:min(len(b.moves), ev.Ply-1)], ev.Move.String())
}

func (b *Board) PositionReset(ev session.ResetEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moves = b.moves[:min(len(b.moves), ev.Ply)]
}

// Tap forwards a display cell to the controller.
func (b *Board) Tap(col, row int) bool {
	if b.ctrl == nil {
		return false
	}
	b.curCol, b.curRow = col, row
	return b.ctrl.OnInput(col, row)
}

// cellAt maps a screen position to a display cell.
func (b *Board) cellAt(sx, sy int) (int, int, bool) {
	x, y, _, _ := b.Box.GetInnerRect()
	dx, dy := sx-x-labelWidth, sy-y
	if dx < 0 || dy < 0 {
		return 0, 0, false
	}
	col, row := dx/cellWidth, dy
	if col >= core.Files || row >= core.Ranks {
		return 0, 0, false
	}
	return col, row, true
}

func (b *Board) mouse(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	if action != tview.MouseLeftClick {
		return action, event
	}
	if col, row, ok := b.cellAt(event.Position()); ok {
		b.Tap(col, row)
		b.refreshInfo()
		return action, nil
	}
	return action, event
}

func (b *Board) key(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp:
		b.curRow = max(b.curRow-1, 0)
	case tcell.KeyDown:
		b.curRow = min(b.curRow+1, core.Ranks-1)
	case tcell.KeyLeft:
		b.curCol = max(b.curCol-1, 0)
	case tcell.KeyRight:
		b.curCol = min(b.curCol+1, core.Files-1)
	case tcell.KeyEnter:
		b.Tap(b.curCol, b.curRow)
	case tcell.KeyRune:
		switch event.Rune() {
		case ' ':
			b.Tap(b.curCol, b.curRow)
		case 'r':
			b.ctrl.Restart()
		case 'u':
			b.ctrl.Retract()
		case 'q':
			b.app.Stop()
		default:
			return event
		}
	default:
		return event
	}
	b.refreshInfo()
	return nil
}

func (b *Board) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if b.ctrl == nil {
		return x, y, width, height
	}
	left := x + labelWidth
	flipped := b.ctrl.Config().Flipped

	for row := 0; row < core.Ranks; row++ {
		rank := core.Ranks - 1 - row
		if flipped {
			rank = row
		}
		screen.SetContent(x+1, y+row, rune('0'+rank), nil, styleLabel)
		for col := 0; col < core.Files; col++ {
			r := '┼'
			if row == core.Ranks/2-1 || row == core.Ranks/2 {
				r = '─' // river banks
			}
			screen.SetContent(left+col*cellWidth, y+row, r, nil, styleBoard)
			screen.SetContent(left+col*cellWidth+1, y+row, '─', nil, styleBoard)
		}
	}
	for col := 0; col < core.Files; col++ {
		file := rune('a' + col)
		if flipped {
			file = rune('i' - col)
		}
		screen.SetContent(left+col*cellWidth, y+core.Ranks, file, nil, styleLabel)
	}

	b.ctrl.DrawBoard(&screenCanvas{screen: screen, left: left, top: y, glyphs: b.glyphs})
	recolor(screen, left+b.curCol*cellWidth, y+b.curRow, styleCursor)
	return x, y, width, height
}

func recolor(screen tcell.Screen, sx, sy int, bg tcell.Color) {
	for i := 0; i < cellWidth; i++ {
		r, comb, style, _ := screen.GetContent(sx+i, sy)
		screen.SetContent(sx+i, sy, r, comb, style.Background(bg))
	}
}

// screenCanvas paints controller frames onto a tcell screen.
type screenCanvas struct {
	screen    tcell.Screen
	left, top int
	glyphs    bool
}

func (s *screenCanvas) DrawPiece(pc core.Piece, col, row int) {
	style := styleRed
	if pc.Side() == core.Black {
		style = styleBlack
	}
	sx, sy := s.left+col*cellWidth, s.top+row
	if s.glyphs {
		s.screen.SetContent(sx, sy, pc.Glyph(), nil, style)
		return
	}
	s.screen.SetContent(sx, sy, rune(pc.Letter()), nil, style)
	s.screen.SetContent(sx+1, sy, ' ', nil, style)
}

func (s *screenCanvas) DrawHighlight(col, row int) {
	recolor(s.screen, s.left+col*cellWidth, s.top+row, styleHighlight)
}

func (b *Board) refreshInfo() {
	if b.ctrl == nil {
		return
	}
	st := b.ctrl.State()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Level:   %d\n", st.Level)
	fmt.Fprintf(&sb, "Layout:  %s\n", core.Layouts[st.Layout].Name)
	fmt.Fprintf(&sb, "You:     %s\n", sideName(st.Human))
	fmt.Fprintf(&sb, "To move: %s\n", sideName(st.SideToMove))
	switch {
	case st.Outcome != core.OutcomeOngoing:
		fmt.Fprintf(&sb, "[yellow]Game over: %s[-]\n", st.Outcome)
	case st.Thinking:
		sb.WriteString("[green]Thinking...[-]\n")
	default:
		sb.WriteString("\n")
	}

	b.mu.Lock()
	moves := b.moves
	if len(moves) > 16 {
		moves = moves[len(moves)-16:]
	}
	sb.WriteString("\nMoves: " + strings.Join(moves, " ") + "\n")
	b.mu.Unlock()

	sb.WriteString("\nclick/⏎ tap   ←↑↓→ cursor\nr restart   u retract   q quit")
	b.Info.SetText(sb.String())
}

func sideName(s core.Side) string {
	if s == core.Black {
		return "[white]Black[-]"
	}
	return "[red]Red[-]"
}
