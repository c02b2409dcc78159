package api

import (
	"errors"
	"io"
	"net"
	"testing"

	"xiangqi/internal/client/display"
	"xiangqi/internal/core"
	xhttp "xiangqi/internal/http"
	"xiangqi/internal/service"
)

func newTestClient(t *testing.T) *Client {
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

	c := New("http://" + ln.Addr().String() + "/")
	c.Out = io.Discard
	return c
}

func TestClientSessionLifecycle(t *testing.T) {
	c := newTestClient(t)

	health, err := c.Health()
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health = %+v, err = %v", health, err)
	}

	created, err := c.CreateSession(&core.CreateSessionRequest{Level: 0})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	c.SetToken(created.Token)
	id := created.SessionID

	sq, _ := core.ParseSquare("h2")
	col, row := sq.Cell()
	action, err := c.Tap(id, col, row)
	if err != nil || !action.Accepted || action.State.Selected != "h2" {
		t.Fatalf("tap = %+v, err = %v", action, err)
	}

	polled, err := c.PollSession(id, action.State.Version-1)
	if err != nil || polled.Version < action.State.Version {
		t.Fatalf("poll = %+v, err = %v", polled, err)
	}

	board, err := c.GetBoard(id)
	if err != nil || board.FEN != core.StartingFEN {
		t.Fatalf("board = %+v, err = %v", board, err)
	}

	if action, err := c.Retract(id); err != nil || action.Accepted {
		t.Fatalf("retract on fresh session = %+v, err = %v", action, err)
	}
	if action, err := c.Restart(id); err != nil || !action.Accepted {
		t.Fatalf("restart = %+v, err = %v", action, err)
	}
	if err := c.DeleteSession(id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	_, err = c.GetSession(id)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != 404 || statusErr.Response.Code != core.ErrSessionNotFound {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestClientWithoutToken(t *testing.T) {
	c := newTestClient(t)
	created, err := c.CreateSession(&core.CreateSessionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Restart(created.SessionID)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != 401 {
		t.Fatalf("restart without token err = %v", err)
	}
}
