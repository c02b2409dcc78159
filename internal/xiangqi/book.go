package xiangqi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"xiangqi/internal/core"
)

var ErrEmptyBook = errors.New("opening book has no usable lines")

type bookMove struct {
	move   core.Move
	weight int
}

// Book maps positions reached from the standard start to weighted replies.
type Book struct {
	entries map[uint64][]bookMove
	lines   int
	skipped int
}

// OpenBook loads a book file from disk.
func OpenBook(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open opening book: %w", err)
	}
	defer f.Close()
	return LoadBook(f)
}

// LoadBook parses a text book. Each line is
//
//	<ICCS moves from the start position> : <reply> [weight]
//
// Blank lines and lines starting with '#' are ignored. Lines that do not
// replay legally are skipped. Every accepted line is also entered mirrored.
func LoadBook(r io.Reader) (*Book, error) {
	b := &Book{entries: make(map[uint64][]bookMove)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prefix, reply, weight, err := parseBookLine(line)
		if err != nil {
			b.skipped++
			continue
		}
		if !b.add(prefix, reply, weight) {
			b.skipped++
			continue
		}
		mirrored := make([]core.Move, len(prefix))
		for i, mv := range prefix {
			mirrored[i] = mv.Mirror()
		}
		b.add(mirrored, reply.Mirror(), weight)
		b.lines++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read opening book: %w", err)
	}
	if b.lines == 0 {
		return nil, ErrEmptyBook
	}
	return b, nil
}

func parseBookLine(line string) ([]core.Move, core.Move, int, error) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return nil, core.NoMove, 0, fmt.Errorf("missing ':'")
	}
	var prefix []core.Move
	for _, tok := range strings.Fields(before) {
		mv, err := core.ParseMove(tok)
		if err != nil {
			return nil, core.NoMove, 0, err
		}
		prefix = append(prefix, mv)
	}
	fields := strings.Fields(after)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, core.NoMove, 0, fmt.Errorf("expected reply and optional weight")
	}
	reply, err := core.ParseMove(fields[0])
	if err != nil {
		return nil, core.NoMove, 0, err
	}
	weight := 1
	if len(fields) == 2 {
		weight, err = strconv.Atoi(fields[1])
		if err != nil || weight <= 0 {
			return nil, core.NoMove, 0, fmt.Errorf("bad weight %q", fields[1])
		}
	}
	return prefix, reply, weight, nil
}

func (b *Book) add(prefix []core.Move, reply core.Move, weight int) bool {
	pos := NewPosition()
	for _, mv := range prefix {
		if !pos.LegalMove(mv) {
			return false
		}
		pos.MakeMove(mv)
	}
	if !pos.LegalMove(reply) {
		return false
	}
	candidates := b.entries[pos.key]
	for i := range candidates {
		if candidates[i].move == reply {
			candidates[i].weight = max(candidates[i].weight, weight)
			return true
		}
	}
	b.entries[pos.key] = append(candidates, bookMove{move: reply, weight: weight})
	return true
}

// Lines is the number of accepted lines.
func (b *Book) Lines() int { return b.lines }

// Skipped is the number of malformed or illegal lines.
func (b *Book) Skipped() int { return b.skipped }

// Probe picks a weighted book reply for pos, or NoMove.
func (b *Book) Probe(pos *Position, rng *rand.Rand) core.Move {
	if b == nil {
		return core.NoMove
	}
	candidates := b.entries[pos.key]
	total := 0
	for _, c := range candidates {
		if pos.LegalMove(c.move) {
			total += c.weight
		}
	}
	if total == 0 {
		return core.NoMove
	}
	pick := rng.IntN(total)
	for _, c := range candidates {
		if !pos.LegalMove(c.move) {
			continue
		}
		if pick < c.weight {
			return c.move
		}
		pick -= c.weight
	}
	return core.NoMove
}
