package jscheck

import (
	"context"
	"fmt"

	"github.com/robertkrimen/otto"
)

// Otto runs scripts with github.com/robertkrimen/otto.
type Otto struct{}

// Name implements Engine.
func (Otto) Name() string { return EngineOtto }

type ottoHalt struct{}

// Call implements Engine. Each call uses a fresh runtime.
func (Otto) Call(ctx context.Context, src, fn, arg string) (result string, err error) {
	if ctx.Err() != nil {
		return "", ErrInterrupted
	}
	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt <- func() { panic(ottoHalt{}) }
	})
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(ottoHalt); ok {
				result, err = "", ErrInterrupted
				return
			}
			panic(r)
		}
	}()

	if _, err := vm.Run(src); err != nil {
		return "", fmt.Errorf("run script: %w", err)
	}
	value, err := vm.Call(fn, nil, arg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", fn, err)
	}
	if !value.IsString() {
		return "", fmt.Errorf("%s did not return a string", fn)
	}
	return value.ToString()
}
