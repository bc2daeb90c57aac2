package jscheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Goja runs scripts with github.com/dop251/goja.
type Goja struct{}

// Name implements Engine.
func (Goja) Name() string { return EngineGoja }

// Call implements Engine. Each call uses a fresh runtime.
func (Goja) Call(ctx context.Context, src, fn, arg string) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInterrupted
	}
	vm := goja.New()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ErrInterrupted) })
	defer stop()

	if _, err := vm.RunString(src); err != nil {
		return "", gojaError("run script", err)
	}
	f, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return "", fmt.Errorf("%s function not found in script", fn)
	}
	res, err := f(goja.Undefined(), vm.ToValue(arg))
	if err != nil {
		return "", gojaError(fn, err)
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return "", fmt.Errorf("%s returned undefined/null", fn)
	}
	return res.String(), nil
}

func gojaError(op string, err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		return ErrInterrupted
	}
	return fmt.Errorf("%s: %w", op, err)
}
