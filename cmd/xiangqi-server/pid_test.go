package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestLockPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	release, err := lockPIDFile(path)
	if err != nil {
		t.Fatalf("lockPIDFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("PID file holds %q", data)
	}

	if _, err := lockPIDFile(path); err == nil {
		t.Fatal("second lock on the same file succeeded")
	}

	release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("PID file not removed: %v", err)
	}
}
