package crc32

import (
	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/internal/dispatch"
)

func accelerated() []dispatch.Candidate[Func] {
	return []dispatch.Candidate[Func]{
		{Name: "clmul", Requires: []string{cpufeat.PCLMULQDQ, cpufeat.SSE41}, Fn: runtimeAsm},
	}
}
