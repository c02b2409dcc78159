package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSearch struct {
	thinking bool
	waited   bool
}

func (f *fakeSearch) Thinking() bool { return f.thinking }
func (f *fakeSearch) Wait()          { f.waited = true }

func TestWaitForEngineNotice(t *testing.T) {
	var out bytes.Buffer
	s := &fakeSearch{thinking: true}
	waitForEngine(s, 6*time.Second, &out, zerolog.Nop())
	if !s.waited {
		t.Fatal("running search was not joined")
	}
	if !strings.Contains(out.String(), "Waiting for the engine") || !strings.Contains(out.String(), "6s") {
		t.Fatalf("notice = %q", out.String())
	}

	out.Reset()
	idle := &fakeSearch{}
	waitForEngine(idle, time.Second, &out, zerolog.Nop())
	if idle.waited || out.Len() != 0 {
		t.Fatalf("idle session printed %q", out.String())
	}
}
