package xiangqi

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"xiangqi/internal/core"
)

const (
	MateValue = 10000
	banValue  = MateValue - 100 // perpetual check
	winValue  = MateValue - 200 // scores beyond this are forced mates
	drawValue = 20

	maxPly     = 64
	checkEvery = 1024 // nodes between deadline polls
)

const (
	ttExact int8 = iota
	ttUpperBound
	ttLowerBound
)

type ttEntry struct {
	depth int
	score int
	flag  int8
	move  core.Move
}

// searcher runs one time-limited search over a private position.
type searcher struct {
	pos      *Position
	deadline time.Time
	stopped  bool
	nodes    int
	ply      int
	history  [23][256]int
	tt       map[uint64]ttEntry
	log      zerolog.Logger
}

func newSearcher(pos *Position, budget time.Duration, log zerolog.Logger) *searcher {
	return &searcher{
		pos:      pos,
		deadline: time.Now().Add(budget),
		tt:       make(map[uint64]ttEntry, 1<<14),
		log:      log,
	}
}

func (s *searcher) poll() {
	s.nodes++
	if s.nodes%checkEvery == 0 && time.Now().After(s.deadline) {
		s.stopped = true
	}
}

// run iterates deepening searches until the budget is spent and returns the
// best move of the last completed depth. NoMove means no legal move exists.
func (s *searcher) run(budget time.Duration) core.Move {
	start := time.Now()
	root := s.pos.LegalMoves()
	if len(root) == 0 {
		return core.NoMove
	}
	best := root[0]
	if len(root) == 1 {
		return best
	}
	for depth := 1; depth <= maxPly; depth++ {
		mv, score, ok := s.searchRoot(root, best, depth)
		if !ok {
			break
		}
		best = mv
		s.log.Debug().
			Int("depth", depth).
			Int("score", score).
			Str("move", mv.String()).
			Int("nodes", s.nodes).
			Dur("elapsed", time.Since(start)).
			Msg("iteration complete")
		if score > winValue || score < -winValue {
			break
		}
		if time.Since(start) > budget/2 {
			break
		}
	}
	return best
}

func (s *searcher) searchRoot(root []core.Move, first core.Move, depth int) (core.Move, int, bool) {
	s.sortRoot(root, first)
	alpha, beta := -MateValue, MateValue
	best := core.NoMove
	for _, mv := range root {
		if !s.pos.MakeMove(mv) {
			continue
		}
		s.ply++
		newDepth := depth - 1
		if s.pos.InCheck() {
			newDepth = depth
		}
		var vl int
		if best == core.NoMove {
			vl = -s.alphaBeta(-beta, -alpha, newDepth)
		} else {
			vl = -s.alphaBeta(-alpha-1, -alpha, newDepth)
			if vl > alpha && !s.stopped {
				vl = -s.alphaBeta(-beta, -alpha, newDepth)
			}
		}
		s.ply--
		s.pos.UndoMakeMove()
		if s.stopped {
			return core.NoMove, 0, false
		}
		if vl > alpha || best == core.NoMove {
			alpha = vl
			best = mv
		}
	}
	if best != core.NoMove {
		s.rewardHistory(best, depth)
	}
	return best, alpha, best != core.NoMove
}

func (s *searcher) sortRoot(root []core.Move, first core.Move) {
	for i, mv := range root {
		if mv == first {
			root[0], root[i] = root[i], root[0]
			break
		}
	}
	rest := root[1:]
	slices.SortStableFunc(rest, func(a, b core.Move) int {
		return s.orderScore(b) - s.orderScore(a)
	})
}

func (s *searcher) orderScore(mv core.Move) int {
	victim := s.pos.squares[mv.Dst()]
	attacker := s.pos.squares[mv.Src()]
	if victim != core.NoPiece {
		return 1<<20 + mvvLva[victim.Kind()]<<3 - mvvLva[attacker.Kind()]
	}
	return s.history[attacker][mv.Dst()]
}

func (s *searcher) orderMoves(moves []core.Move, hashMove core.Move) {
	slices.SortFunc(moves, func(a, b core.Move) int {
		if a == hashMove {
			return -1
		}
		if b == hashMove {
			return 1
		}
		return s.orderScore(b) - s.orderScore(a)
	})
}

func (s *searcher) rewardHistory(mv core.Move, depth int) {
	pc := s.pos.squares[mv.Src()]
	s.history[pc][mv.Dst()] += depth * depth
}

func (s *searcher) drawScore() int {
	if s.ply&1 == 0 {
		return -drawValue
	}
	return drawValue
}

func (s *searcher) repScore(status int) int {
	vl := 0
	if status&RepOwnCheck != 0 {
		vl += s.ply - banValue
	}
	if status&RepOppCheck != 0 {
		vl += banValue - s.ply
	}
	if vl == 0 {
		return s.drawScore()
	}
	return vl
}

func (s *searcher) probe(depth, alpha, beta int) (int, core.Move, bool) {
	e, ok := s.tt[s.pos.key]
	if !ok {
		return 0, core.NoMove, false
	}
	if e.depth < depth {
		return 0, e.move, false
	}
	score := e.score
	if score > winValue {
		score -= s.ply
	} else if score < -winValue {
		score += s.ply
	}
	switch e.flag {
	case ttExact:
		return score, e.move, true
	case ttLowerBound:
		if score >= beta {
			return score, e.move, true
		}
	case ttUpperBound:
		if score <= alpha {
			return score, e.move, true
		}
	}
	return 0, e.move, false
}

func (s *searcher) store(depth, score int, flag int8, mv core.Move) {
	if len(s.tt) > 1<<20 {
		s.tt = make(map[uint64]ttEntry, 1<<14)
	}
	if score > winValue {
		score += s.ply
	} else if score < -winValue {
		score -= s.ply
	}
	old, ok := s.tt[s.pos.key]
	if ok && old.depth > depth {
		return
	}
	s.tt[s.pos.key] = ttEntry{depth: depth, score: score, flag: flag, move: mv}
}

func (s *searcher) alphaBeta(alpha, beta, depth int) int {
	if s.ply > 0 {
		if status := s.pos.RepStatus(1); status > 0 {
			return s.repScore(status)
		}
	}
	if depth <= 0 || s.ply >= maxPly {
		return s.quiesce(alpha, beta)
	}
	s.poll()
	if s.stopped {
		return 0
	}
	if vl := s.ply - MateValue; vl >= beta {
		return vl
	}

	vl, hashMove, hit := s.probe(depth, alpha, beta)
	if hit {
		return vl
	}

	moves := s.pos.GenerateMoves(false)
	s.orderMoves(moves, hashMove)

	best := -MateValue
	bestMove := core.NoMove
	flag := ttUpperBound
	for _, mv := range moves {
		if !s.pos.MakeMove(mv) {
			continue
		}
		s.ply++
		newDepth := depth - 1
		if s.pos.InCheck() {
			newDepth = depth
		}
		vl := -s.alphaBeta(-beta, -alpha, newDepth)
		s.ply--
		s.pos.UndoMakeMove()
		if s.stopped {
			return 0
		}
		if vl > best {
			best = vl
			if vl >= beta {
				bestMove = mv
				flag = ttLowerBound
				break
			}
			if vl > alpha {
				alpha = vl
				bestMove = mv
				flag = ttExact
			}
		}
	}

	if best == -MateValue {
		return s.ply - MateValue
	}
	s.store(depth, best, flag, bestMove)
	if bestMove != core.NoMove {
		s.rewardHistory(bestMove, depth)
	}
	return best
}

func (s *searcher) quiesce(alpha, beta int) int {
	s.poll()
	if s.stopped {
		return 0
	}
	if s.ply > 0 {
		if status := s.pos.RepStatus(1); status > 0 {
			return s.repScore(status)
		}
	}
	if vl := s.ply - MateValue; vl >= beta {
		return vl
	}
	if s.ply >= maxPly {
		return s.pos.Evaluate()
	}

	best := -MateValue
	var moves []core.Move
	if s.pos.InCheck() {
		moves = s.pos.GenerateMoves(false)
	} else {
		vl := s.pos.Evaluate()
		if vl >= beta {
			return vl
		}
		best = vl
		if vl > alpha {
			alpha = vl
		}
		moves = s.pos.GenerateMoves(true)
	}
	s.orderMoves(moves, core.NoMove)

	for _, mv := range moves {
		if !s.pos.MakeMove(mv) {
			continue
		}
		s.ply++
		vl := -s.quiesce(-beta, -alpha)
		s.ply--
		s.pos.UndoMakeMove()
		if s.stopped {
			return 0
		}
		if vl > best {
			best = vl
			if vl >= beta {
				return vl
			}
			if vl > alpha {
				alpha = vl
			}
		}
	}
	if best == -MateValue {
		return s.ply - MateValue
	}
	return best
}
