package dump

import (
	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	SortKeys: true,
	Indent:   " ",
}

func Print(xs ...any) {
	dumper.Dump(xs...)
}

func Sdump(xs ...any) string {
	return dumper.Sdump(xs...)
}
