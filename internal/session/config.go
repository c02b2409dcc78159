package session

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/constraints"

	"xiangqi/internal/core"
)

// MaxLevel is the strongest difficulty level.
const MaxLevel = 6

var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrNoEngine      = errors.New("engine is required")
	ErrNoView        = errors.New("view is required")
)

// Config is fixed for the lifetime of a session.
type Config struct {
	Level   int  // search difficulty, clamped to 0..MaxLevel
	Layout  int  // index into core.Layouts
	Flipped bool // human plays Black and the board is shown rotated
}

func (c Config) validate() (Config, error) {
	if c.Layout < 0 || c.Layout >= len(core.Layouts) {
		return c, fmt.Errorf("%w: %d", ErrInvalidLayout, c.Layout)
	}
	c.Level = clamp(c.Level, 0, MaxLevel)
	return c, nil
}

// Budget returns the search time in milliseconds for a level: 100 * 4^level.
func Budget(level int) int {
	return 100 << (clamp(level, 0, MaxLevel) << 1)
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Option func(*Controller)

func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRunner replaces the goroutine used for searches. run must eventually
// call the task exactly once.
func WithRunner(run func(task func())) Option {
	return func(c *Controller) { c.run = run }
}
