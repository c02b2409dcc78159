package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"xiangqi/internal/core"
	"xiangqi/internal/xiangqi"
)

type countingView struct {
	sync  atomic.Int32
	async atomic.Int32
}

func (v *countingView) RequestRepaint()      { v.sync.Add(1) }
func (v *countingView) RequestRepaintAsync() { v.async.Add(1) }

type recordingCanvas struct {
	pieces     map[[2]int]core.Piece
	highlights [][2]int
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{pieces: make(map[[2]int]core.Piece)}
}

func (r *recordingCanvas) DrawPiece(pc core.Piece, col, row int) {
	r.pieces[[2]int{col, row}] = pc
}

func (r *recordingCanvas) DrawHighlight(col, row int) {
	r.highlights = append(r.highlights, [2]int{col, row})
}

type recorder struct {
	mu     sync.Mutex
	moves  []MoveEvent
	resets []ResetEvent
}

func (r *recorder) MoveApplied(ev MoveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, ev)
}

func (r *recorder) PositionReset(ev ResetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, ev)
}

// scriptedEngine answers searches from a fixed list instead of searching.
type scriptedEngine struct {
	*xiangqi.Engine
	mu      sync.Mutex
	replies []core.Move
}

func (s *scriptedEngine) Search(int) core.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return core.NoMove
	}
	mv := s.replies[0]
	s.replies = s.replies[1:]
	return mv
}

// gatedEngine blocks every search until released.
type gatedEngine struct {
	*xiangqi.Engine
	started chan struct{}
	release chan struct{}
}

func (g *gatedEngine) Search(budget int) core.Move {
	g.started <- struct{}{}
	<-g.release
	return g.Engine.Search(budget)
}

// presetEngine swaps every layout for a fixed test position.
type presetEngine struct {
	*xiangqi.Engine
	fen string
}

func (p *presetEngine) Deserialize(text string) error {
	for _, l := range core.Layouts {
		if text == l.FEN {
			text = p.fen
		}
	}
	return p.Engine.Deserialize(text)
}

type refusingEngine struct{ *xiangqi.Engine }

func (refusingEngine) ApplyMove(core.Move) bool { return false }

type repeatingEngine struct{ *xiangqi.Engine }

func (repeatingEngine) RepetitionStatus(int) int { return xiangqi.RepDetected }

func syncRunner(task func()) { task() }

func moves(t *testing.T, names ...string) []core.Move {
	t.Helper()
	out := make([]core.Move, len(names))
	for i, n := range names {
		mv, err := core.ParseMove(n)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", n, err)
		}
		out[i] = mv
	}
	return out
}

func square(t *testing.T, name string) core.Square {
	t.Helper()
	sq, err := core.ParseSquare(name)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", name, err)
	}
	return sq
}

// tap presses the display cell showing the named square.
func tap(t *testing.T, c *Controller, name string) bool {
	t.Helper()
	sq := square(t, name)
	if c.State().Flipped {
		sq = sq.Flip()
	}
	col, row := sq.Cell()
	return c.OnInput(col, row)
}

func start(t *testing.T, eng Engine, cfg Config, opts ...Option) (*Controller, *countingView) {
	t.Helper()
	view := &countingView{}
	c, err := New(eng, view, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, view
}
