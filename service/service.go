// Package service binds background asynchronous operations to the
// lifetime of an owning session object. Every spawned operation is
// tracked until it settles, failures are isolated and routed to an
// overridable hook, and Close cancels everything still running.
package service

import (
	"context"
	"sync"

	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/log"
	"git.tatikoma.dev/corpix/strand/seq"
)

type (
	void = struct{}

	// Closing is the cancellation cause used by Close.
	Closing void

	Option func(*Service)

	Service struct {
		name  string
		log   log.Logger
		sched Scheduler
		hooks Hooks

		mu     sync.Mutex
		node   any
		closed bool
		lastID uint64
		ops    *seq.Set[uint64, *Operation]
	}
)

func (Closing) Error() string { return "service is closing" }

var ErrDetached = errors.New("service is detached")

func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithHooks(h Hooks) Option {
	return func(s *Service) { s.hooks = h }
}

func WithScheduler(sched Scheduler) Option {
	return func(s *Service) { s.sched = sched }
}

// New binds a service to node, the opaque owning session object.
func New(node any, opts ...Option) *Service {
	s := &Service{
		name:  "service",
		node:  node,
		sched: GoScheduler,
		log:   *log.DefaultLogger,
		ops: seq.NewSet(nil, func(op *Operation) uint64 {
			return op.id
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("service", s.name).Logger()
	if s.hooks == nil {
		s.hooks = LogHooks{Log: s.log}
	}
	return s
}

func (s *Service) Name() string { return s.name }

// Node returns the owning session object, or nil once the service is
// detached by Close.
func (s *Service) Node() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.node
}

// Len reports the number of tracked operations not yet settled.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.Len()
}

// Operations returns a snapshot of the tracked handles.
func (s *Service) Operations() []*Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.Values()
}

// Spawn schedules fn asynchronously and returns its handle. The handle
// is registered before fn can run, so a fast-completing operation is
// never settled untracked. Spawning on a detached service returns an
// already-cancelled untracked handle carrying ErrDetached.
func (s *Service) Spawn(fn Func, opts ...SpawnOption) *Operation {
	op := &Operation{
		fn:   fn,
		done: make(chan void),
	}
	op.ctx, op.cancel = context.WithCancelCause(context.Background())
	for _, opt := range opts {
		opt(op)
	}
	if op.name == "" {
		if loc, err := op.Loc(); err == nil {
			op.name = loc.Package + "." + loc.FuncName
		} else {
			op.name = "operation"
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.err = ErrDetached
		close(op.done)
		op.cancel(ErrDetached)
		s.log.Warn().
			Str("operation", op.name).
			Msg("spawn on detached service, dropping")
		return op
	}
	s.lastID++
	op.id = s.lastID
	s.ops.Add(op)
	s.mu.Unlock()

	err := s.sched.Schedule(func() {
		result, err := s.invoke(op)
		s.settle(op, result, err)
	})
	if err != nil {
		s.settle(op, nil, errors.Wrap(err, "failed to schedule operation"))
	}
	return op
}

func (s *Service) invoke(op *Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.Recover(r), "operation panicked")
		}
	}()
	return op.fn(op.ctx)
}

// settle records the terminal state, removes the handle from the
// tracked set and routes the outcome to the hooks. Runs exactly once
// per spawned operation.
func (s *Service) settle(op *Operation, result any, err error) {
	op.result, op.err = result, err
	close(op.done)
	op.cancel(nil)

	s.mu.Lock()
	s.ops.Del(op.id)
	hooks := s.hooks
	s.mu.Unlock()

	switch {
	case op.Canceled():
		s.log.Debug().
			Str("operation", op.name).
			Msg("operation canceled")
	case err != nil:
		s.guard(func() { hooks.OnOperationFailed(op, err) })
	default:
		s.guard(func() { hooks.OnOperationSucceeded(op, result) })
	}
}

// guard keeps a panicking hook from unwinding into the service.
func (s *Service) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Err(errors.Recover(r)).
				Msg("hook panicked")
		}
	}()
	fn()
}

// Close requests cancellation of every tracked operation and clears
// the node reference permanently. It does not wait for operations to
// finish unwinding. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.node = nil
	ops := s.ops.Values()
	s.mu.Unlock()

	for _, op := range ops {
		op.cancel(Closing{})
	}
	s.log.Debug().
		Int("operations", len(ops)).
		Msg("service detached")
	return nil
}
