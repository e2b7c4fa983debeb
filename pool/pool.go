// Package pool provides a bounded scheduler: a fixed set of workers
// draining a backlog of scheduled units of work. It satisfies the
// service.Scheduler capability when unbounded goroutine-per-operation
// scheduling is not wanted.
package pool

import (
	"runtime"
	"sync"

	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/log"
)

var (
	ErrClosing = errors.New("pool is closing")

	DefaultConfig = Config{
		Size:    runtime.NumCPU(),
		Backlog: 1,
	}
)

type (
	void = struct{}

	Config struct {
		Size    int
		Backlog int
	}

	Pool struct {
		cfg     Config
		mu      sync.Mutex
		closed  bool
		closeCh chan void
		jobs    chan func()
		wg      sync.WaitGroup
	}
)

func New(cfg Config) *Pool {
	p := &Pool{
		cfg:     cfg,
		closeCh: make(chan void),
		jobs:    make(chan func(), cfg.Backlog),
	}
	p.wg.Add(cfg.Size)
	for range cfg.Size {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closeCh:
			p.drain()
			return
		case fn := <-p.jobs:
			p.run(fn)
		}
	}
}

// drain runs whatever is left in the backlog, every accepted unit of
// work must run so its operation settles.
func (p *Pool) drain() {
	for {
		select {
		case fn := <-p.jobs:
			p.run(fn)
		default:
			return
		}
	}
}

// run contains a panicking unit of work inside its worker.
func (p *Pool) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Err(errors.Recover(r)).
				Msg("scheduled work panicked")
		}
	}()
	fn()
}

// Schedule enqueues fn for a worker to pick up. Blocks while the
// backlog is full, fails with ErrClosing once Close began. An accepted
// fn is guaranteed to run, at latest while the pool closes.
func (p *Pool) Schedule(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosing
	}
	// workers keep consuming until closeCh is closed, which Close does
	// only after taking the lock held here, so this send cannot block
	// forever
	p.jobs <- fn
	return nil
}

func (p *Pool) Size() int    { return p.cfg.Size }
func (p *Pool) Backlog() int { return p.cfg.Backlog }

// Close fails further Schedule calls and stops the workers once the
// backlog is empty. Work accepted before Close still runs.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.closeCh)
	p.wg.Wait()
}
