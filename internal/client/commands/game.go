package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"xiangqi/internal/client/display"
	"xiangqi/internal/core"
)

// maxReplyPolls bounds how long move waits for the engine's reply
const maxReplyPolls = 8

var errNoSession = errors.New("no current session, use 'new' or 'join <sessionId> <token>'")

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new session",
		Usage:       "new [level 0-6] [layout 0-3] [flipped]",
		Handler:     newSessionHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Set the current session and seat token",
		Usage:       "join <sessionId> [token]",
		Handler:     joinSessionHandler,
	})

	r.Register(&Command{
		Name:        "tap",
		ShortName:   "t",
		Description: "Tap a board cell",
		Usage:       "tap <col 0-8> <row 0-9>",
		Handler:     tapHandler,
	})

	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Play a move as two taps and wait for the reply",
		Usage:       "move <iccs-move>",
		Handler:     moveHandler,
	})

	r.Register(&Command{
		Name:        "restart",
		ShortName:   "r",
		Description: "Reload the starting layout",
		Usage:       "restart",
		Handler:     restartHandler,
	})

	r.Register(&Command{
		Name:        "retract",
		ShortName:   "u",
		Description: "Take back the last full turn",
		Usage:       "retract",
		Handler:     retractHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and session state",
		Usage:       "show",
		Handler:     showBoardHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw session JSON",
		Usage:       "state",
		Handler:     sessionStateHandler,
	})

	r.Register(&Command{
		Name:        "poll",
		ShortName:   "p",
		Description: "Long-poll for session updates",
		Usage:       "poll",
		Handler:     pollHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete the current session",
		Usage:       "delete",
		Handler:     deleteSessionHandler,
	})
}

func newSessionHandler(s *Session, args []string) error {
	req := core.CreateSessionRequest{}
	if len(args) > 0 {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid level: %s", args[0])
		}
		req.Level = level
	}
	if len(args) > 1 {
		layout, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid layout: %s", args[1])
		}
		req.Layout = layout
	}
	if len(args) > 2 {
		flipped, err := strconv.ParseBool(args[2])
		if err != nil && args[2] != "flipped" {
			return fmt.Errorf("invalid flipped flag: %s", args[2])
		}
		req.Flipped = flipped || args[2] == "flipped"
	}

	resp, err := s.Client.CreateSession(&req)
	if err != nil {
		return err
	}

	s.SessionID = resp.SessionID
	s.Token = resp.Token
	s.Client.SetToken(resp.Token)
	s.State = &resp.State

	s.printf("%sSession created: %s%s\n", display.Green, resp.SessionID, display.Reset)
	s.printf("You play %s on the %s layout, level %d\n",
		display.ColorForSide(resp.State.Human), resp.State.Layout, resp.State.Level)
	if resp.State.Thinking {
		s.printf("%sEngine moves first, use 'poll' or 'show'%s\n", display.Magenta, display.Reset)
	}
	return nil
}

func joinSessionHandler(s *Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <sessionId> [token]")
	}

	resp, err := s.Client.GetSession(args[0])
	if err != nil {
		return err
	}

	s.SessionID = resp.SessionID
	s.State = resp
	s.Token = ""
	if len(args) > 1 {
		s.Token = args[1]
	}
	s.Client.SetToken(s.Token)

	s.printf("%sJoined session: %s%s\n", display.Green, resp.SessionID, display.Reset)
	s.printf("Turn: %s | Outcome: %s | Moves: %d\n", display.ColorForSide(resp.Turn), resp.Outcome, len(resp.Moves))
	if s.Token == "" {
		s.printf("%sNo token: read-only%s\n", display.Yellow, display.Reset)
	}
	return nil
}

func tapHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: tap <col> <row>")
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid col: %s", args[0])
	}
	row, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid row: %s", args[1])
	}

	accepted, err := s.tap(col, row)
	if err != nil {
		return err
	}
	s.reportAction("Tap", accepted)
	return nil
}

func (s *Session) tap(col, row int) (bool, error) {
	resp, err := s.Client.Tap(s.SessionID, col, row)
	if err != nil {
		return false, err
	}
	s.State = &resp.State
	return resp.Accepted, nil
}

func (s *Session) reportAction(what string, accepted bool) {
	if accepted {
		s.printf("%s%s accepted%s\n", display.Green, what, display.Reset)
	} else {
		s.printf("%s%s rejected%s\n", display.Yellow, what, display.Reset)
	}
}

// cellOf maps an engine square to the display cell the server expects
func cellOf(sq core.Square, flipped bool) (int, int) {
	if flipped {
		sq = sq.Flip()
	}
	return sq.Cell()
}

func moveHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: move <iccs-move>")
	}
	mv, err := core.ParseMove(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	if s.State == nil {
		if s.State, err = s.Client.GetSession(s.SessionID); err != nil {
			return err
		}
	}

	flipped := s.State.Flipped
	col, row := cellOf(mv.Src(), flipped)
	if ok, err := s.tap(col, row); err != nil || !ok {
		if err != nil {
			return err
		}
		return fmt.Errorf("cannot select %s", mv.Src())
	}
	col, row = cellOf(mv.Dst(), flipped)
	ok, err := s.tap(col, row)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("illegal move %s", mv)
	}
	s.printf("%sMove accepted%s\n", display.Green, display.Reset)

	if s.State.Outcome != core.OutcomeOngoing.String() {
		s.printf("%sGame over: %s%s\n", display.Magenta, s.State.Outcome, display.Reset)
		return nil
	}
	if !s.State.Thinking {
		return nil
	}

	s.printf("%sEngine is thinking...%s\n", display.Magenta, display.Reset)
	for i := 0; i < maxReplyPolls && s.State.Thinking; i++ {
		state, err := s.Client.PollSession(s.SessionID, s.State.Version)
		if err != nil {
			return err
		}
		s.State = state
	}
	if s.State.Thinking {
		return fmt.Errorf("timeout waiting for engine reply")
	}
	if s.State.LastMove != "" {
		s.printf("%sEngine played: %s%s\n", display.Magenta, s.State.LastMove, display.Reset)
	}
	if s.State.Outcome != core.OutcomeOngoing.String() {
		s.printf("%sGame over: %s%s\n", display.Magenta, s.State.Outcome, display.Reset)
	}
	return nil
}

func restartHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	resp, err := s.Client.Restart(s.SessionID)
	if err != nil {
		return err
	}
	s.State = &resp.State
	s.reportAction("Restart", resp.Accepted)
	return nil
}

func retractHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	resp, err := s.Client.Retract(s.SessionID)
	if err != nil {
		return err
	}
	s.State = &resp.State
	s.reportAction("Retract", resp.Accepted)
	return nil
}

func showBoardHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}

	state, err := s.Client.GetSession(s.SessionID)
	if err != nil {
		return err
	}
	board, err := s.Client.GetBoard(s.SessionID)
	if err != nil {
		return err
	}
	s.State = state

	s.printf("\n")
	display.RenderBoard(s.Out, board.Board)

	s.printf("\nFEN: %s\n", state.FEN)
	s.printf("Turn: %s | Outcome: %s | Moves: %d | Undo: %d\n",
		display.ColorForSide(state.Turn), state.Outcome, len(state.Moves), state.History)
	if state.Thinking {
		s.printf("%sEngine is thinking%s\n", display.Magenta, display.Reset)
	}

	if len(state.Moves) > 0 {
		s.printf("\nHistory: %s\n", formatMoves(state.Moves))
	}
	return nil
}

// formatMoves numbers moves in pairs: "1.h2e2 h9g7 2.h0g2"
func formatMoves(moves []string) string {
	var sb strings.Builder
	for i, move := range moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i%2 == 0 {
			sb.WriteString(fmt.Sprintf("%d.", i/2+1))
		}
		sb.WriteString(move)
	}
	return sb.String()
}

func sessionStateHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	resp, err := s.Client.GetSession(s.SessionID)
	if err != nil {
		return err
	}
	s.State = resp

	s.printf("%sSession State:%s\n", display.Cyan, display.Reset)
	display.PrettyPrintJSON(s.Out, resp)
	return nil
}

func pollHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}

	var version uint64
	if s.State != nil {
		version = s.State.Version
	}

	s.printf("%sLong-polling for updates (version: %d)...%s\n", display.Cyan, version, display.Reset)
	s.printf("%sThis may take up to 25 seconds%s\n", display.Cyan, display.Reset)

	resp, err := s.Client.PollSession(s.SessionID, version)
	if err != nil {
		return err
	}
	s.State = resp

	if resp.Version > version {
		s.printf("%sSession updated%s\n", display.Green, display.Reset)
		if resp.LastMove != "" {
			s.printf("Last move: %s\n", resp.LastMove)
		}
	} else {
		s.printf("%sNo updates (timeout)%s\n", display.Yellow, display.Reset)
	}
	return nil
}

func deleteSessionHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	if err := s.Client.DeleteSession(s.SessionID); err != nil {
		return err
	}

	s.printf("%sSession deleted: %s%s\n", display.Green, s.SessionID, display.Reset)
	s.forget()
	return nil
}
