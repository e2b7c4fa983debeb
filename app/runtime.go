package app

import (
	"context"

	"github.com/urfave/cli/v2"

	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/service"
	"git.tatikoma.dev/corpix/strand/watcher"
)

type Runtime struct {
	Cli     *cli.App
	Root    *service.Service
	Watcher *watcher.Watcher

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRuntime(ctx context.Context) (*Runtime, error) {
	w, err := watcher.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	r := &Runtime{
		Cli:     cli.NewApp(),
		Watcher: w,
	}
	// the runtime is the session object the root service is bound to
	r.Root = service.New(r, service.WithName("app"))
	r.ctx, r.cancel = context.WithCancel(ctx)

	return r, nil
}

func (r *Runtime) Run(args []string) error {
	return r.Cli.RunContext(r.ctx, args)
}

func (r *Runtime) Close() error {
	err := r.Root.Close()
	r.cancel()
	if wErr := r.Watcher.Close(); wErr != nil && err == nil {
		err = wErr
	}
	return err
}
