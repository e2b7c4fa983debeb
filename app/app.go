// Package app is the host harness for long-running programs composed
// of supervised services: cli surface, config loading, signal
// handling and config reload notification.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/log"
	"git.tatikoma.dev/corpix/strand/service"
	"git.tatikoma.dev/corpix/strand/watcher"
)

type (
	Context  = cli.Context
	Command  = cli.Command
	Commands = []*Command

	Application[C Config] interface {
		Configure(path string) (C, error)
		Signals(...SignalGroup) Signals
		Flags() Flags
		Commands() Commands
		Services() Services
		Notify(Signal)
		Init(*Runtime)
		PreRun(*cli.Context) error
		Run(*cli.Context) error
		Exec(args []string) error
		Close() error
	}

	App[C Config] struct {
		Config C
		self   Application[C]
		*Runtime
		stopTimeout time.Duration
	}

	// Service is an app-level long-running component. Each enabled
	// service runs as one supervised operation of the root service.
	Service interface {
		Name() string
		Enabled() bool
		Run(context.Context) error
		Signal(os.Signal)
		Close() error
	}
	Services = []Service
)

const DefaultStopTimeout = 10 * time.Second

func (a *App[C]) Configure(path string) (C, error) {
	log.Info().
		Str("config", path).
		Msg("loading config")

	var c C
	typ := reflect.TypeOf((*C)(nil)).Elem()
	if typ.Kind() == reflect.Pointer {
		c = reflect.New(typ.Elem()).Interface().(C)
	}
	err := c.FromFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "failed to load config from %q", path)
	}
	a.Config = c
	return c, nil
}

func (*App[C]) Signals(sgids ...SignalGroup) Signals {
	if len(sgids) == 0 {
		sgids = SignalGroups
	}

	var sigs Signals
	for _, sgid := range sgids {
		switch sgid {
		case SignalGroupStop:
			sigs = append(sigs, syscall.SIGINT, syscall.SIGTERM)
		case SignalGroupNotify:
			sigs = append(sigs, syscall.SIGUSR1, SignalReload)
		}
	}
	return sigs
}

func (*App[C]) Flags() Flags {
	return Flags{
		&PathFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "configuration file path",
		},
		&BoolFlag{
			Name:  FlagVerbose,
			Usage: "set info log level",
			Value: false,
		},
		&BoolFlag{
			Name:     FlagDebug,
			Usage:    "set debug log level",
			Value:    false,
			Category: "debug",
		},
	}
}

func (*App[C]) Commands() Commands {
	return nil
}

func (*App[C]) Services() Services {
	return nil
}

func (a *App[C]) Notify(sig Signal) {
	for _, srv := range a.self.Services() {
		srv.Signal(sig)
	}
}

func (a *App[C]) Init(r *Runtime) {
	r.Cli.Flags = a.self.Flags()
	r.Cli.Commands = a.self.Commands()
	r.Cli.Before = a.self.PreRun
	r.Cli.Action = a.self.Run
}

func (a *App[C]) PreRun(ctx *cli.Context) error {
	log.SetLevel(log.WarnLevel)

	verbose := ctx.Bool(FlagVerbose)
	if verbose {
		log.SetLevel(log.InfoLevel)
	}
	MetaRegister(FlagVerbose, verbose)

	debug := ctx.Bool(FlagDebug)
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	MetaRegister(FlagDebug, debug)

	config := ctx.Path(FlagConfig)
	if config != "" {
		var err error
		a.Config, err = a.self.Configure(config)
		if err != nil {
			return err
		}
		a.watchConfig(config)
	}
	MetaRegister(FlagConfig, config)

	return nil
}

// watchConfig fires SignalReload to the services when the config file
// changes.
func (a *App[C]) watchConfig(path string) {
	sig, err := a.Watcher.Watch(path, watcher.ModifyFilter())
	if err != nil {
		log.Warn().
			Err(err).
			Str("config", path).
			Msg("failed to watch config, reload disabled")
		return
	}
	sig.Connect(watcher.Debounce(1*time.Second, func(watcher.Event) {
		log.Info().Str("config", path).Msg("config changed")
		a.self.Notify(SignalReload)
	}))
}

func (a *App[C]) runService(srv Service) *service.Operation {
	return a.Root.Spawn(func(ctx context.Context) (any, error) {
		ctx = log.Ctx(ctx).
			With().
			Str("service", srv.Name()).
			Logger().
			WithContext(ctx)

		log.Ctx(ctx).Info().Msg("running...")
		defer log.Ctx(ctx).Warn().Msg("stopped")

		defer errors.LogCallErrCtx(ctx, srv.Close, "failed to close service")
		return nil, srv.Run(ctx)
	}, service.SpawnName(srv.Name()))
}

func (a *App[C]) Run(ctx *cli.Context) error {
	a.Root.Spawn(func(ctx context.Context) (any, error) {
		a.Watcher.Run(ctx)
		return nil, ctx.Err()
	}, service.SpawnName("watcher"))

	var ops []*service.Operation
	for _, srv := range a.self.Services() {
		if !srv.Enabled() {
			continue
		}
		ops = append(ops, a.runService(srv))
	}

	a.Watchdog(ctx, ops)
	return nil
}

// Watchdog blocks translating process signals until a stop is
// requested, then closes the root service and waits for the
// operations to unwind within the stop timeout.
func (a *App[C]) Watchdog(ctx *cli.Context, ops []*service.Operation) {
	sigs := a.self.Signals()
	sgids := GroupSignals(a.self)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)
	defer signal.Stop(sigCh)

watchdog:
	for {
		select {
		case <-ctx.Done():
			break watchdog
		case sig := <-sigCh:
			log.Info().
				Str("signal", sig.String()).
				Msg("received signal")
			switch sgids[sig] {
			case SignalGroupNotify:
				a.self.Notify(sig)
			case SignalGroupStop:
				break watchdog
			default:
				log.Warn().
					Str("signal", sig.String()).
					Msg("unsupported signal, ignoring")
			}
		}
	}

	log.Warn().
		Str("timeout", a.stopTimeout.String()).
		Msg("shutting down...")
	errors.Log(a.Runtime.Close(), "failed to close runtime")

	deadline := time.After(a.stopTimeout)
	for _, op := range ops {
		select {
		case <-op.Done():
		case <-deadline:
			log.Error().Msg("timed out waiting for services to stop")
			return
		}
	}
	log.Warn().Msg("exiting")
}

func (a *App[C]) Exec(args []string) error {
	return a.Runtime.Run(args)
}

func (*App[C]) Close() error {
	return nil
}

// New creates an App with the provided runtime.
// It is expected that the caller invokes Init on self.
func New[C Config](r *Runtime, self Application[C]) *App[C] {
	return &App[C]{
		Runtime:     r,
		self:        self,
		stopTimeout: DefaultStopTimeout,
	}
}

func Error(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
