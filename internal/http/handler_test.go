package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"xiangqi/internal/core"
	"xiangqi/internal/service"
)

var testSecret = []byte("test-secret-minimum-32-characters-long")

func newTestApp(t *testing.T) (*fiber.App, *service.Service) {
	t.Helper()
	svc := service.New(nil, testSecret)
	t.Cleanup(func() { svc.Close() })
	return NewFiberApp(svc, Config{DevMode: true}), svc
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func create(t *testing.T, app *fiber.App, body string) core.CreateSessionResponse {
	t.Helper()
	status, data := do(t, app, "POST", "/api/v1/sessions", "", body)
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d body = %s", status, data)
	}
	return decode[core.CreateSessionResponse](t, data)
}

func tapBody(t *testing.T, name string) string {
	t.Helper()
	sq, err := core.ParseSquare(name)
	if err != nil {
		t.Fatal(err)
	}
	col, row := sq.Cell()
	return fmt.Sprintf(`{"col":%d,"row":%d}`, col, row)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	status, data := do(t, app, "GET", "/api/v1/health", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	health := decode[core.HealthResponse](t, data)
	if health.Status != "healthy" || health.Storage != "disabled" {
		t.Fatalf("health = %+v", health)
	}
}

func TestCreateSession(t *testing.T) {
	app, _ := newTestApp(t)

	created := create(t, app, `{"level":2,"layout":1}`)
	if created.Token == "" || created.SessionID != created.State.SessionID {
		t.Fatalf("created = %+v", created)
	}
	if created.State.Level != 2 || created.State.Layout != core.Layouts[1].Name || created.State.Human != "red" {
		t.Fatalf("state = %+v", created.State)
	}

	// Empty body takes the defaults.
	if created := create(t, app, ""); created.State.FEN != core.StartingFEN {
		t.Fatalf("default fen = %q", created.State.FEN)
	}

	for _, body := range []string{`{"level":7}`, `{"layout":4}`, `{"level":-1}`, `{"level":`} {
		status, data := do(t, app, "POST", "/api/v1/sessions", "", body)
		if status != fiber.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, status)
		}
		if e := decode[core.ErrorResponse](t, data); e.Code != core.ErrInvalidRequest {
			t.Fatalf("body %s: code = %s", body, e.Code)
		}
	}
}

func TestContentType(t *testing.T) {
	app, _ := newTestApp(t)
	req := httptest.NewRequest("POST", "/api/v1/sessions", strings.NewReader("level=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTapFlow(t *testing.T) {
	app, svc := newTestApp(t)
	created := create(t, app, `{}`)
	base := "/api/v1/sessions/" + created.SessionID

	// Empty square with nothing selected is rejected, not an error.
	status, data := do(t, app, "POST", base+"/taps", created.Token, tapBody(t, "e5"))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d body = %s", status, data)
	}
	if decode[core.ActionResponse](t, data).Accepted {
		t.Fatal("tap on empty square accepted")
	}

	status, data = do(t, app, "POST", base+"/taps", created.Token, tapBody(t, "h2"))
	action := decode[core.ActionResponse](t, data)
	if status != fiber.StatusOK || !action.Accepted || action.State.Selected != "h2" {
		t.Fatalf("select: status = %d action = %+v", status, action)
	}

	status, data = do(t, app, "POST", base+"/taps", created.Token, tapBody(t, "e2"))
	action = decode[core.ActionResponse](t, data)
	if status != fiber.StatusOK || !action.Accepted || action.State.LastMove != "h2e2" {
		t.Fatalf("move: status = %d action = %+v", status, action)
	}

	sess, err := svc.GetSession(created.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	sess.Wait()

	status, data = do(t, app, "GET", base, "", "")
	state := decode[core.SessionResponse](t, data)
	if status != fiber.StatusOK || len(state.Moves) != 2 || state.Turn != "red" || state.Thinking {
		t.Fatalf("state = %+v", state)
	}

	// A stale version returns at once.
	status, data = do(t, app, "GET", fmt.Sprintf("%s?wait=true&version=%d", base, state.Version-1), "", "")
	if status != fiber.StatusOK || decode[core.SessionResponse](t, data).Version != state.Version {
		t.Fatalf("long poll status = %d body = %s", status, data)
	}
	if status, _ := do(t, app, "GET", base+"?wait=true", "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("wait without version: status = %d", status)
	}

	status, data = do(t, app, "POST", base+"/retract", created.Token, "")
	action = decode[core.ActionResponse](t, data)
	if status != fiber.StatusOK || !action.Accepted || len(action.State.Moves) != 0 {
		t.Fatalf("retract: status = %d action = %+v", status, action)
	}
	status, data = do(t, app, "POST", base+"/retract", created.Token, "")
	if status != fiber.StatusOK || decode[core.ActionResponse](t, data).Accepted {
		t.Fatal("retract with empty history accepted")
	}

	status, data = do(t, app, "GET", base+"/board", "", "")
	board := decode[core.BoardResponse](t, data)
	if status != fiber.StatusOK || board.FEN != core.StartingFEN || !strings.Contains(board.Board, "C") {
		t.Fatalf("board = %+v", board)
	}

	status, data = do(t, app, "POST", base+"/restart", created.Token, "")
	if status != fiber.StatusOK || !decode[core.ActionResponse](t, data).Accepted {
		t.Fatalf("restart: status = %d", status)
	}
}

func TestSeatToken(t *testing.T) {
	app, _ := newTestApp(t)
	first := create(t, app, `{}`)
	second := create(t, app, `{}`)
	path := "/api/v1/sessions/" + first.SessionID + "/taps"

	if status, _ := do(t, app, "POST", path, "", tapBody(t, "h2")); status != fiber.StatusUnauthorized {
		t.Fatalf("no token: status = %d", status)
	}
	if status, _ := do(t, app, "POST", path, "garbage", tapBody(t, "h2")); status != fiber.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", status)
	}
	status, data := do(t, app, "POST", path, second.Token, tapBody(t, "h2"))
	if status != fiber.StatusForbidden || decode[core.ErrorResponse](t, data).Code != core.ErrForbidden {
		t.Fatalf("foreign token: status = %d body = %s", status, data)
	}
}

func TestTapValidation(t *testing.T) {
	app, _ := newTestApp(t)
	created := create(t, app, `{}`)
	path := "/api/v1/sessions/" + created.SessionID + "/taps"
	for _, body := range []string{`{"col":9,"row":0}`, `{"col":0,"row":10}`, `{"row":3}`, `{}`} {
		if status, _ := do(t, app, "POST", path, created.Token, body); status != fiber.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, status)
		}
	}
}

func TestSessionErrors(t *testing.T) {
	app, _ := newTestApp(t)
	if status, _ := do(t, app, "GET", "/api/v1/sessions/not-a-uuid", "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("bad id: status = %d", status)
	}
	status, data := do(t, app, "GET", "/api/v1/sessions/6f1c2b1e-8d7a-4c47-9a53-2d2f3f6b9a10", "", "")
	if status != fiber.StatusNotFound || decode[core.ErrorResponse](t, data).Code != core.ErrSessionNotFound {
		t.Fatalf("missing: status = %d body = %s", status, data)
	}
}

func TestDeleteSession(t *testing.T) {
	app, _ := newTestApp(t)
	created := create(t, app, `{}`)
	path := "/api/v1/sessions/" + created.SessionID

	if status, _ := do(t, app, "DELETE", path, "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("delete without token: status = %d", status)
	}
	if status, _ := do(t, app, "DELETE", path, created.Token, ""); status != fiber.StatusNoContent {
		t.Fatalf("delete: status = %d", status)
	}
	if status, _ := do(t, app, "GET", path, "", ""); status != fiber.StatusNotFound {
		t.Fatalf("get after delete: status = %d", status)
	}
}
