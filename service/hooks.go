package service

import (
	"git.tatikoma.dev/corpix/strand/dump"
	"git.tatikoma.dev/corpix/strand/log"
)

type (
	// Hooks observes operation outcomes. Failed and succeeded are
	// mutually exclusive and fire at most once per operation,
	// cancelled operations fire neither. Implementations are the last
	// line of defense for unhandled failures and must not panic
	// (panics are contained by the service, then logged).
	Hooks interface {
		OnOperationSucceeded(op *Operation, result any)
		OnOperationFailed(op *Operation, err error)
	}

	// LogHooks is the default Hooks implementation recording outcomes
	// as structured diagnostics.
	LogHooks struct {
		Log log.Logger
	}
)

func (h LogHooks) OnOperationSucceeded(op *Operation, result any) {
	h.Log.Info().
		Uint64("id", op.ID()).
		Str("operation", op.Name()).
		Msg("operation succeeded")
	h.Log.Debug().
		Str("operation", op.Name()).
		Str("result", dump.Sdump(result)).
		Msg("operation result")
}

func (h LogHooks) OnOperationFailed(op *Operation, err error) {
	h.Log.Error().
		Err(err).
		Uint64("id", op.ID()).
		Str("operation", op.Name()).
		Msg("operation failed")
}

var _ Hooks = LogHooks{}
