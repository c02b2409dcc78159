package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SearchPool runs engine searches for all sessions on a bounded set of
// workers. A search the controller has launched is never dropped: when the
// queue is full or the pool is closed, the task gets its own goroutine.
type SearchPool struct {
	tasks   chan func()
	workers int
	log     zerolog.Logger

	mu     sync.RWMutex // guards closed against in-flight Submit
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSearchPool creates a pool with workerCount workers and a queue of queueSize
func NewSearchPool(workerCount, queueSize int, logger zerolog.Logger) *SearchPool {
	if workerCount < 1 {
		workerCount = 2
	}
	if queueSize < 1 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &SearchPool{
		tasks:   make(chan func(), queueSize),
		workers: workerCount,
		log:     logger.With().Str("component", "search_pool").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *SearchPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			p.execute(id, task)

		case <-p.ctx.Done():
			// Queued searches still have to finish
			for {
				select {
				case task := <-p.tasks:
					p.execute(id, task)
				default:
					return
				}
			}
		}
	}
}

func (p *SearchPool) execute(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("search task panicked")
		}
	}()
	task()
}

// Submit queues task. It matches the runner signature session.WithRunner expects.
func (p *SearchPool) Submit(task func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.closed {
		select {
		case p.tasks <- task:
			return
		default:
			p.log.Warn().Msg("search queue full, running on a dedicated goroutine")
		}
	}
	go task()
}

// Shutdown stops accepting queued work and waits for the workers to drain
func (p *SearchPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("search pool shutdown timeout exceeded")
	}
}
