package crc32

import (
	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/internal/dispatch"
)

func accelerated() []dispatch.Candidate[Func] {
	return []dispatch.Candidate[Func]{
		{Name: "armcrc", Requires: []string{cpufeat.CRC}, Fn: runtimeAsm},
	}
}
