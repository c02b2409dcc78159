// Package main runs one Xiangqi session against the bundled engine in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"xiangqi/internal/core"
	"xiangqi/internal/session"
	"xiangqi/internal/tui"
	"xiangqi/internal/xiangqi"
)

func main() {
	var (
		level   = flag.Int("level", 0, fmt.Sprintf("Engine level 0-%d, search time is 100ms * 4^level", session.MaxLevel))
		layout  = flag.Int("layout", 0, "Starting layout 0-3 (0 standard, 1-3 handicaps)")
		flipped = flag.Bool("flipped", false, "Play Black; the engine opens and the board is rotated")
		book    = flag.String("book", "", "Opening book file (bundled book if empty)")
		glyphs  = flag.Bool("glyphs", true, "Draw pieces as Chinese characters")
		logPath = flag.String("log", "", "Write debug log to this file")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nLayouts:\n", os.Args[0])
		for i, l := range core.Layouts {
			fmt.Fprintf(flag.CommandLine.Output(), "  %d  %s\n", i, l.Name)
		}
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, closeLog, err := newLogger(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	err = tui.Run(tui.Options{
		Session: session.Config{Level: *level, Layout: *layout, Flipped: *flipped},
		Book:    loadBook(*book, logger),
		Glyphs:  *glyphs,
		Logger:  logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("session ended with error")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes to path, or nowhere: the terminal belongs to the board.
func newLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return zerolog.Nop(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: "15:04:05.000"}
	logger := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, func() { f.Close() }, nil
}

// loadBook reads a book file, falling back to the bundled book. A broken
// book only costs opening variety, so failures are logged and play goes on.
func loadBook(path string, logger zerolog.Logger) *xiangqi.Book {
	if path != "" {
		b, err := xiangqi.OpenBook(path)
		if err == nil {
			logger.Info().Str("path", path).Int("lines", b.Lines()).Int("skipped", b.Skipped()).Msg("book loaded")
			return b
		}
		logger.Warn().Err(err).Str("path", path).Msg("book unavailable, using bundled book")
	}
	b, err := xiangqi.DefaultBook()
	if err != nil {
		logger.Warn().Err(err).Msg("bundled book unavailable, playing without a book")
		return nil
	}
	return b
}

