// Package main hosts Xiangqi sessions over a JSON API with optional SQLite
// persistence. "xiangqi-server db ..." manages the database instead.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"xiangqi/cmd/xiangqi-server/cli"
	"xiangqi/internal/http"
	"xiangqi/internal/service"
	"xiangqi/internal/storage"
	"xiangqi/internal/xiangqi"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, fixed token secret, debug log)")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)")
		bookPath    = flag.String("book", "", "Opening book file (bundled book if empty)")
		workers     = flag.Int("workers", 4, "Concurrent engine searches")
		maxSessions = flag.Int("max-sessions", service.DefaultMaxSessions, "Maximum hosted sessions")
		glyphs      = flag.Bool("glyphs", false, "Board text uses Chinese characters")
		accessLog   = flag.Bool("access-log", true, "Log every HTTP request")
		pidPath     = flag.String("pid", "", "Optional path to a locked PID file (one instance per file)")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *dev {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if *pidPath != "" {
		release, err := lockPIDFile(*pidPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *pidPath).Msg("failed to lock PID file")
		}
		defer release()
	}

	// 1. Storage (optional)
	var store *storage.Store
	if *storagePath != "" {
		var err error
		store, err = storage.NewStore(*storagePath, *dev, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize storage")
		}
		if err := store.InitDB(); err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize schema")
		}
		logger.Info().Str("path", *storagePath).Msg("persistent storage enabled")
	} else {
		logger.Info().Msg("persistent storage disabled (use -storage-path to enable)")
	}

	// 2. Seat token secret
	var secret []byte
	if *dev {
		secret = []byte("dev-secret-minimum-32-characters-long")
		logger.Warn().Msg("using fixed token secret (dev mode)")
	} else {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate token secret")
		}
	}

	// 3. Service
	svc := service.New(store, secret,
		service.WithLogger(logger),
		service.WithBook(loadBook(*bookPath, logger)),
		service.WithWorkers(*workers),
		service.WithMaxSessions(*maxSessions),
	)

	// 4. HTTP
	app := http.NewFiberApp(svc, http.Config{DevMode: *dev, Glyphs: *glyphs, AccessLog: *accessLog})
	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)

	go func() {
		logger.Info().
			Str("addr", "http://"+apiAddr).
			Bool("dev", *dev).
			Int("workers", *workers).
			Msg("xiangqi API server starting")
		if err := app.Listen(apiAddr); err != nil {
			logger.Error().Err(err).Msg("API server listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	// Service first so long polls return before the server waits on them
	if err := svc.Close(); err != nil {
		logger.Error().Err(err).Msg("service shutdown error")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

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
