package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"xiangqi/internal/session"
	"xiangqi/internal/xiangqi"
)

type Options struct {
	Session session.Config
	Book    *xiangqi.Book // nil plays without a book
	Glyphs  bool
	Logger  zerolog.Logger
	Notice  io.Writer // receives the exit notice while a search finishes; stderr when nil
}

// Run plays one session in the terminal until the user quits.
func Run(opts Options) error {
	app := tview.NewApplication()
	board := NewBoard(app, opts.Glyphs)

	eng := xiangqi.New(opts.Book, xiangqi.WithLogger(opts.Logger))
	ctrl, err := session.New(eng, board, opts.Session,
		session.WithListener(board),
		session.WithLogger(opts.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	board.Attach(ctrl)
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	layout := tview.NewFlex().
		AddItem(board.Box, boardWidth+1, 0, true).
		AddItem(board.Info, 0, 1, false)
	app.SetRoot(layout, true).EnableMouse(true)

	opts.Logger.Info().
		Int("level", opts.Session.Level).
		Int("layout", opts.Session.Layout).
		Bool("flipped", opts.Session.Flipped).
		Msg("session started")

	err = app.Run()
	notice := opts.Notice
	if notice == nil {
		notice = os.Stderr
	}
	waitForEngine(ctrl, time.Duration(session.Budget(ctrl.Config().Level))*time.Millisecond, notice, opts.Logger)
	return err
}

type searchWaiter interface {
	Thinking() bool
	Wait()
}

// waitForEngine joins a running search after the screen is gone. Searches
// cannot be cancelled, so the user is told how long it may take.
func waitForEngine(s searchWaiter, budget time.Duration, w io.Writer, log zerolog.Logger) {
	if !s.Thinking() {
		return
	}
	fmt.Fprintf(w, "Waiting for the engine to finish its move (up to %s)...\n", budget)
	log.Info().Dur("budget", budget).Msg("waiting for search before exit")
	start := time.Now()
	s.Wait()
	log.Info().Dur("waited", time.Since(start)).Msg("search finished")
}
