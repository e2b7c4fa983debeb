package app

import (
	"github.com/urfave/cli/v2"
)

type (
	Flag         = cli.Flag
	StringFlag   = cli.StringFlag
	PathFlag     = cli.PathFlag
	DurationFlag = cli.DurationFlag
	BoolFlag     = cli.BoolFlag
	IntFlag      = cli.IntFlag
	Flags        = []Flag
)

const (
	FlagConfig  = "config"
	FlagVerbose = "verbose"
	FlagDebug   = "debug"
)
