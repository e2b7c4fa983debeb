package journal

import (
	"context"
	"time"

	"git.tatikoma.dev/corpix/strand/dump"
	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/service"
)

const DefaultAppendTimeout = 5 * time.Second

// Hooks persists every operation outcome and then delegates to Next.
// It satisfies service.Hooks.
type Hooks struct {
	Journal *Journal
	Service string
	Next    service.Hooks
	Timeout time.Duration
}

func (h Hooks) append(r Record) {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = DefaultAppendTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := h.Journal.Append(ctx, r)
	errors.Log(err, "failed to journal operation outcome")
}

func (h Hooks) OnOperationSucceeded(op *service.Operation, result any) {
	h.append(Record{
		Service:   h.Service,
		Operation: op.Name(),
		Outcome:   OutcomeSucceeded,
		Result:    dump.Sdump(result),
	})
	if h.Next != nil {
		h.Next.OnOperationSucceeded(op, result)
	}
}

func (h Hooks) OnOperationFailed(op *service.Operation, err error) {
	h.append(Record{
		Service:   h.Service,
		Operation: op.Name(),
		Outcome:   OutcomeFailed,
		Error:     err.Error(),
	})
	if h.Next != nil {
		h.Next.OnOperationFailed(op, err)
	}
}

var _ service.Hooks = Hooks{}
