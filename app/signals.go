package app

import (
	"os"
	"syscall"
)

type (
	Signal           = os.Signal
	Signals          = []Signal
	SignalGroup      uint8
	SignalGroupIndex = map[Signal]SignalGroup
)

const (
	SignalGroupStop   SignalGroup = 0
	SignalGroupNotify             = iota
)

var SignalGroups = []SignalGroup{
	SignalGroupStop,
	SignalGroupNotify,
}

// SignalReload is delivered to services when a watched config file
// changes.
var SignalReload Signal = syscall.SIGHUP

func GroupSignals(s interface{ Signals(...SignalGroup) Signals }) SignalGroupIndex {
	sgids := SignalGroupIndex{}
	for _, sgid := range SignalGroups {
		for _, sig := range s.Signals(sgid) {
			sgids[sig] = sgid
		}
	}
	return sgids
}
