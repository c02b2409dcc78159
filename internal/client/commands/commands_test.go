package commands

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"xiangqi/internal/client/display"
	"xiangqi/internal/core"
	xhttp "xiangqi/internal/http"
	"xiangqi/internal/service"
)

func newTestRegistry(t *testing.T) (*Registry, *Session, *bytes.Buffer) {
	t.Helper()
	display.Enable(false)

	svc := service.New(nil, []byte("test-secret-minimum-32-characters-long"))
	app := xhttp.NewFiberApp(svc, xhttp.Config{DevMode: true})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	t.Cleanup(func() {
		app.Shutdown()
		svc.Close()
	})

	var out bytes.Buffer
	s := NewSession("http://" + ln.Addr().String())
	s.Out = &out
	s.Client.Out = &out
	return NewRegistry(s), s, &out
}

func TestNewAndMove(t *testing.T) {
	r, s, out := newTestRegistry(t)

	if err := r.Execute("new 0 0"); err != nil {
		t.Fatal(err)
	}
	if s.SessionID == "" || s.Token == "" {
		t.Fatalf("session not stored: %+v", s)
	}

	r.Execute("move h2e2")
	if s.State == nil || len(s.State.Moves) != 2 || s.State.Moves[0] != "h2e2" {
		t.Fatalf("state after move = %+v\n%s", s.State, out)
	}
	if !strings.Contains(out.String(), "Engine played: "+s.State.Moves[1]) {
		t.Fatalf("reply not reported:\n%s", out)
	}

	out.Reset()
	r.Execute("move a0a5")
	if !strings.Contains(out.String(), "Error: illegal move a0a5") {
		t.Fatalf("illegal move not reported:\n%s", out)
	}

	out.Reset()
	r.Execute("show")
	if !strings.Contains(out.String(), "History: 1.h2e2 ") {
		t.Fatalf("show output:\n%s", out)
	}

	r.Execute("retract")
	if len(s.State.Moves) != 0 {
		t.Fatalf("moves after retract = %v", s.State.Moves)
	}

	r.Execute("delete")
	if s.SessionID != "" {
		t.Fatal("session kept after delete")
	}
}

func TestMoveWhenFlipped(t *testing.T) {
	r, s, out := newTestRegistry(t)
	r.Execute("new 0 0 flipped")
	if s.State == nil || !s.State.Flipped || s.State.Human != "black" {
		t.Fatalf("state = %+v", s.State)
	}
	r.Execute("poll")
	for s.State.Thinking {
		r.Execute("poll")
	}
	r.Execute("move h7e7")
	if len(s.State.Moves) != 3 || s.State.Moves[1] != "h7e7" {
		t.Fatalf("moves = %v\n%s", s.State.Moves, out)
	}
}

func TestCommandsWithoutSession(t *testing.T) {
	r, _, out := newTestRegistry(t)
	for _, line := range []string{"tap 0 0", "move h2e2", "restart", "retract", "show", "poll", "delete"} {
		out.Reset()
		if err := r.Execute(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
		if !strings.Contains(out.String(), "no current session") {
			t.Fatalf("%s output: %s", line, out)
		}
	}

	out.Reset()
	r.Execute("frobnicate")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Fatalf("unknown command output: %s", out)
	}
	if err := r.Execute("exit"); !errors.Is(err, ErrExit) {
		t.Fatalf("exit returned %v", err)
	}
}

func TestCellOf(t *testing.T) {
	sq, _ := core.ParseSquare("a0")
	if col, row := cellOf(sq, false); col != 0 || row != 9 {
		t.Fatalf("a0 unflipped = (%d,%d)", col, row)
	}
	if col, row := cellOf(sq, true); col != 8 || row != 0 {
		t.Fatalf("a0 flipped = (%d,%d)", col, row)
	}
}

func TestFormatMoves(t *testing.T) {
	if got := formatMoves([]string{"h2e2", "h9g7", "h0g2"}); got != "1.h2e2 h9g7 2.h0g2" {
		t.Fatalf("formatMoves = %q", got)
	}
}

func TestDebugCommands(t *testing.T) {
	r, s, out := newTestRegistry(t)
	for _, line := range []string{"token", "fen", "raw GET @/board"} {
		out.Reset()
		r.Execute(line)
		if !strings.Contains(out.String(), "no current session") {
			t.Fatalf("%s without session: %s", line, out)
		}
	}

	r.Execute("new")
	out.Reset()
	r.Execute("fen")
	if !strings.Contains(out.String(), core.StartingFEN) {
		t.Fatalf("fen output: %s", out)
	}

	out.Reset()
	r.Execute("token")
	if !strings.Contains(out.String(), s.Token) || !strings.Contains(out.String(), "/api/v1/sessions/"+s.SessionID+"/taps") {
		t.Fatalf("token output: %s", out)
	}

	path, err := s.expandPath("@/board")
	if err != nil || path != "/api/v1/sessions/"+s.SessionID+"/board" {
		t.Fatalf("expandPath = %q, %v", path, err)
	}
	if path, _ := s.expandPath("/api/v1/health"); path != "/api/v1/health" {
		t.Fatalf("plain path rewritten to %q", path)
	}

	out.Reset()
	r.Execute("url localhost:1")
	if s.SessionID != "" || s.Token != "" || s.APIBaseURL != "http://localhost:1" {
		t.Fatalf("session kept after switching servers: %+v", s)
	}
	if !strings.Contains(out.String(), "Leaving session") {
		t.Fatalf("url output: %s", out)
	}
}
