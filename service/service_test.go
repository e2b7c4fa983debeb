package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingHooks struct {
	mu        sync.Mutex
	succeeded []any
	failed    []error
	settled   chan void
}

func newRecordingHooks(capacity int) *recordingHooks {
	return &recordingHooks{settled: make(chan void, capacity)}
}

func (h *recordingHooks) OnOperationSucceeded(op *Operation, result any) {
	h.mu.Lock()
	h.succeeded = append(h.succeeded, result)
	h.mu.Unlock()
	h.settled <- void{}
}

func (h *recordingHooks) OnOperationFailed(op *Operation, err error) {
	h.mu.Lock()
	h.failed = append(h.failed, err)
	h.mu.Unlock()
	h.settled <- void{}
}

func (h *recordingHooks) waitSettled(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	for range n {
		select {
		case <-h.settled:
		case <-time.After(timeout):
			t.Fatal("timeout waiting for operation to settle")
		}
	}
}

func TestService(t *testing.T) {
	defer goleak.VerifyNone(t)
	timeout := 1 * time.Second

	t.Run("success and failure hooks fire exactly once", func(t *testing.T) {
		hooks := newRecordingHooks(2)
		node := &struct{}{}
		svc := New(node, WithName("test"), WithHooks(hooks))

		svc.Spawn(func(ctx context.Context) (any, error) {
			return 42, nil
		}, SpawnName("a"))
		boom := errors.New("boom")
		svc.Spawn(func(ctx context.Context) (any, error) {
			return nil, boom
		}, SpawnName("b"))

		hooks.waitSettled(t, 2, timeout)

		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		if len(hooks.succeeded) != 1 || hooks.succeeded[0] != 42 {
			t.Errorf("expected one success with 42, got %v", hooks.succeeded)
		}
		if len(hooks.failed) != 1 || !errors.Is(hooks.failed[0], boom) {
			t.Errorf("expected one failure with boom, got %v", hooks.failed)
		}
		if svc.Len() != 0 {
			t.Errorf("expected empty tracked set, got %d", svc.Len())
		}
	})

	t.Run("handle is tracked until terminal", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		svc := New(nil, WithHooks(hooks))
		release := make(chan void)

		op := svc.Spawn(func(ctx context.Context) (any, error) {
			<-release
			return "done", nil
		})

		if svc.Len() != 1 {
			t.Fatalf("expected 1 tracked operation, got %d", svc.Len())
		}
		if ops := svc.Operations(); len(ops) != 1 || ops[0] != op {
			t.Errorf("expected snapshot to contain the handle")
		}

		close(release)
		hooks.waitSettled(t, 1, timeout)

		if svc.Len() != 0 {
			t.Errorf("expected empty tracked set, got %d", svc.Len())
		}
		res, err := op.Result()
		if err != nil || res != "done" {
			t.Errorf("unexpected outcome: %v, %v", res, err)
		}
	})

	t.Run("close cancels tracked operations silently", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		node := &struct{}{}
		svc := New(node, WithHooks(hooks))

		canceled := make(chan void)
		op := svc.Spawn(func(ctx context.Context) (any, error) {
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		}, SpawnName("never-completes"))

		if svc.Node() != node {
			t.Fatal("expected node to be present before close")
		}
		if err := svc.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if svc.Node() != nil {
			t.Error("expected node to be cleared by close")
		}

		select {
		case <-canceled:
		case <-time.After(timeout):
			t.Fatal("operation did not observe cancellation")
		}
		select {
		case <-op.Done():
		case <-time.After(timeout):
			t.Fatal("operation did not settle")
		}

		if !op.Canceled() {
			t.Errorf("expected canceled terminal state, got err=%v", op.Err())
		}
		hooks.mu.Lock()
		if len(hooks.failed) != 0 || len(hooks.succeeded) != 0 {
			t.Errorf("expected no hook calls, got %v / %v", hooks.succeeded, hooks.failed)
		}
		hooks.mu.Unlock()

		// removal may race the settle goroutine briefly
		deadline := time.Now().Add(timeout)
		for svc.Len() != 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if svc.Len() != 0 {
			t.Errorf("expected empty tracked set, got %d", svc.Len())
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		svc := New(&struct{}{})

		if err := svc.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := svc.Close(); err != nil {
			t.Fatalf("unexpected error on second close: %v", err)
		}
		if svc.Node() != nil {
			t.Error("expected node to stay cleared")
		}
		if svc.Len() != 0 {
			t.Errorf("expected empty tracked set, got %d", svc.Len())
		}
	})

	t.Run("spawn after close returns a detached handle", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		svc := New(&struct{}{}, WithHooks(hooks))
		_ = svc.Close()

		ran := false
		op := svc.Spawn(func(ctx context.Context) (any, error) {
			ran = true
			return nil, nil
		})

		select {
		case <-op.Done():
		case <-time.After(timeout):
			t.Fatal("detached handle must settle immediately")
		}
		if !errors.Is(op.Err(), ErrDetached) {
			t.Errorf("expected ErrDetached, got %v", op.Err())
		}
		if ran {
			t.Error("operation must not run on a detached service")
		}
		if svc.Len() != 0 {
			t.Errorf("expected empty tracked set, got %d", svc.Len())
		}
	})

	t.Run("panic becomes a failure", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		svc := New(nil, WithHooks(hooks))

		svc.Spawn(func(ctx context.Context) (any, error) {
			panic("kaboom")
		}, SpawnName("panicking"))

		hooks.waitSettled(t, 1, timeout)

		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		if len(hooks.failed) != 1 {
			t.Fatalf("expected one failure, got %v", hooks.failed)
		}
		if len(hooks.succeeded) != 0 {
			t.Errorf("expected no success, got %v", hooks.succeeded)
		}
	})

	t.Run("failure is isolated per operation", func(t *testing.T) {
		hooks := newRecordingHooks(2)
		svc := New(nil, WithHooks(hooks))

		survived := make(chan void)
		svc.Spawn(func(ctx context.Context) (any, error) {
			select {
			case <-ctx.Done():
				t.Error("sibling must not be cancelled by a failure")
			case <-time.After(100 * time.Millisecond):
			}
			close(survived)
			return nil, nil
		}, SpawnName("survivor"))
		svc.Spawn(func(ctx context.Context) (any, error) {
			return nil, errors.New("isolated")
		}, SpawnName("failing"))

		select {
		case <-survived:
		case <-time.After(timeout):
			t.Fatal("surviving operation did not complete")
		}
		hooks.waitSettled(t, 2, timeout)
	})

	t.Run("individual cancel is silent", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		svc := New(nil, WithHooks(hooks))

		op := svc.Spawn(func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		op.Cancel()

		select {
		case <-op.Done():
		case <-time.After(timeout):
			t.Fatal("operation did not settle")
		}
		if !op.Canceled() {
			t.Errorf("expected canceled state, got %v", op.Err())
		}
		hooks.mu.Lock()
		if len(hooks.failed) != 0 {
			t.Errorf("cancellation must not reach the failure hook: %v", hooks.failed)
		}
		hooks.mu.Unlock()

		if err := svc.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
	})

	t.Run("wait returns the outcome", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		svc := New(nil, WithHooks(hooks))

		op := svc.Spawn(func(ctx context.Context) (any, error) {
			return "ready", nil
		})
		res, err := op.Wait(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res != "ready" {
			t.Errorf("expected %q, got %v", "ready", res)
		}
		hooks.waitSettled(t, 1, timeout)
	})

	t.Run("outcome flows through a custom scheduler", func(t *testing.T) {
		hooks := newRecordingHooks(1)
		scheduled := 0
		inline := SchedulerFunc(func(fn func()) error {
			scheduled++
			fn()
			return nil
		})
		svc := New(nil, WithHooks(hooks), WithScheduler(inline))

		op := svc.Spawn(func(ctx context.Context) (any, error) {
			return "through", nil
		})

		if scheduled != 1 {
			t.Errorf("expected 1 scheduled unit, got %d", scheduled)
		}
		res, err := op.Result()
		if err != nil || res != "through" {
			t.Errorf("unexpected outcome: %v, %v", res, err)
		}
		hooks.waitSettled(t, 1, timeout)
		hooks.mu.Lock()
		if len(hooks.succeeded) != 1 || hooks.succeeded[0] != "through" {
			t.Errorf("expected the result in the success hook, got %v", hooks.succeeded)
		}
		hooks.mu.Unlock()
	})

	t.Run("panicking hook is contained", func(t *testing.T) {
		svc := New(nil, WithHooks(panicHooks{}))

		op := svc.Spawn(func(ctx context.Context) (any, error) {
			return nil, nil
		})
		select {
		case <-op.Done():
		case <-time.After(timeout):
			t.Fatal("operation did not settle")
		}
		// a second spawn proves the service survived the hook panic
		op = svc.Spawn(func(ctx context.Context) (any, error) {
			return nil, errors.New("still alive")
		})
		if _, err := op.Wait(context.Background()); err == nil {
			t.Error("expected the operation error")
		}
	})
}

type panicHooks struct{}

func (panicHooks) OnOperationSucceeded(op *Operation, result any) { panic("hook") }
func (panicHooks) OnOperationFailed(op *Operation, err error)    { panic("hook") }

func TestOperationLoc(t *testing.T) {
	hooks := newRecordingHooks(1)
	svc := New(nil, WithHooks(hooks))

	op := svc.Spawn(func(ctx context.Context) (any, error) {
		return nil, nil
	})
	loc, err := op.Loc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Package == "" || loc.File == "" || loc.Line == 0 {
		t.Errorf("incomplete location: %+v", loc)
	}
	if op.Name() == "" {
		t.Error("expected a derived operation name")
	}
	hooks.waitSettled(t, 1, time.Second)
}
