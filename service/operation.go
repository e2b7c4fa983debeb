package service

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"git.tatikoma.dev/corpix/strand/errors"
)

type (
	// Func is a unit of asynchronous work run under a Service.
	Func func(ctx context.Context) (any, error)

	// Operation is the handle of one spawned unit of work. It is
	// tracked by the owning service until it reaches a terminal state.
	Operation struct {
		id     uint64
		name   string
		fn     Func
		ctx    context.Context
		cancel context.CancelCauseFunc
		done   chan void

		// result and err are written once, before done is closed
		result any
		err    error
	}

	Loc struct {
		Package  string
		FuncName string
		File     string
		Line     int
	}

	SpawnOption func(*Operation)
)

// SpawnName overrides the operation name derived from the function
// location.
func SpawnName(name string) SpawnOption {
	return func(op *Operation) {
		op.name = name
	}
}

func (op *Operation) ID() uint64   { return op.id }
func (op *Operation) Name() string { return op.name }

// Done is closed when the operation reaches a terminal state.
func (op *Operation) Done() <-chan void { return op.done }

// Cancel requests cooperative cancellation of the operation.
func (op *Operation) Cancel() {
	op.cancel(context.Canceled)
}

// Err returns the terminal error, valid once Done is closed.
func (op *Operation) Err() error { return op.err }

// Result returns the terminal outcome, valid once Done is closed.
func (op *Operation) Result() (any, error) { return op.result, op.err }

// Canceled reports whether the terminal state is a cancellation
// rather than a failure or a success.
func (op *Operation) Canceled() bool {
	if op.err == nil {
		return false
	}
	return errors.Is(op.err, context.Canceled) || errors.Is(op.err, Closing{})
}

// Wait blocks until the operation settles, then returns its outcome.
func (op *Operation) Wait(ctx context.Context) (any, error) {
	select {
	case <-op.done:
		return op.result, op.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loc resolves the source location of the operation function.
func (op *Operation) Loc() (Loc, error) {
	v := reflect.ValueOf(op.fn)
	if v.Kind() != reflect.Func {
		return Loc{}, fmt.Errorf("expected a function, got %v", v.Kind())
	}
	pc := v.Pointer()
	if pc == 0 {
		return Loc{}, fmt.Errorf("invalid function pointer")
	}
	runtimeFunc := runtime.FuncForPC(pc)
	if runtimeFunc == nil {
		return Loc{}, fmt.Errorf("could not find function for PC")
	}

	var (
		file, line            = runtimeFunc.FileLine(pc)
		fullName              = runtimeFunc.Name()
		packageName, funcName string
	)
	if idx := strings.LastIndex(fullName, "."); idx != -1 {
		packageName, funcName = fullName[:idx], fullName[idx+1:]
	}

	return Loc{
		Package:  packageName,
		FuncName: funcName,
		File:     file,
		Line:     line,
	}, nil
}

func (l Loc) String() string {
	return fmt.Sprintf("%s.%s.%s:%d", l.File, l.Package, l.FuncName, l.Line)
}
