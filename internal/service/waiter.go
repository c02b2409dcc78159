package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// WaitTimeout is the maximum time a client can wait for a change
const WaitTimeout = 25 * time.Second

// WaitRegistry manages long-polling clients waiting for session changes
type WaitRegistry struct {
	mu       sync.RWMutex
	waiters  map[string][]*WaitRequest // sessionID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	closed   sync.Once
	wg       sync.WaitGroup
}

// WaitRequest represents a single client waiting for session updates.
// Notify is closed exactly once: on change, timeout, disconnect or shutdown.
type WaitRequest struct {
	Version   uint64        // Last version the client saw
	Notify    chan struct{} // Closed when the wait ends
	SessionID string
	once      sync.Once
}

func (r *WaitRequest) fire() {
	r.once.Do(func() { close(r.Notify) })
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry(timeout time.Duration) *WaitRegistry {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		timeout:  timeout,
		shutdown: make(chan struct{}),
	}
}

// RegisterWait registers a client that has seen version. The returned
// channel closes when a newer version is announced or the wait ends.
func (w *WaitRegistry) RegisterWait(ctx context.Context, sessionID string, version uint64) <-chan struct{} {
	// Callers may pass ids backed by a reused request buffer
	sessionID = strings.Clone(sessionID)
	req := &WaitRequest{
		Version:   version,
		Notify:    make(chan struct{}),
		SessionID: sessionID,
	}

	timer := time.AfterFunc(w.timeout, req.fire)

	w.mu.Lock()
	w.waiters[sessionID] = append(w.waiters[sessionID], req)
	w.mu.Unlock()

	// Cleanup once the wait ends for any reason
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-req.Notify:
		case <-w.shutdown:
		}
		timer.Stop()
		req.fire()
		w.removeWaiter(sessionID, req)
	}()

	return req.Notify
}

// NotifySession wakes every client of sessionID that saw an older version
func (w *WaitRegistry) NotifySession(sessionID string, version uint64) {
	w.mu.RLock()
	waitList := w.waiters[sessionID]
	w.mu.RUnlock()

	for _, req := range waitList {
		if req.Version < version {
			req.fire()
		}
	}
}

// RemoveSession wakes and drops all waiters of a session (called before deletion)
func (w *WaitRegistry) RemoveSession(sessionID string) {
	w.mu.Lock()
	waitList := w.waiters[sessionID]
	delete(w.waiters, sessionID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.fire()
	}
}

// Waiting returns the number of clients currently waiting on a session
func (w *WaitRegistry) Waiting(sessionID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.waiters[sessionID])
}

// Shutdown releases every waiter and waits for cleanup
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.closed.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

// removeWaiter removes a specific waiter from the registry
func (w *WaitRegistry) removeWaiter(sessionID string, req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[sessionID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[sessionID] = append(waitList[:i:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[sessionID]) == 0 {
		delete(w.waiters, sessionID)
	}
}
