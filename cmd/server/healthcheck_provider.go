package main

import (
	llmux "github.com/corvex/llmgate"
	"github.com/corvex/llmgate/internal/api"
)

type swapperClientProvider struct {
	swapper *api.ClientSwapper
}

func (p swapperClientProvider) Acquire() (*llmux.Client, func()) {
	if p.swapper == nil {
		return nil, func() {}
	}
	return p.swapper.Acquire()
}
