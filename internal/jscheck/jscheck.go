// Package jscheck cross-checks a derived cipher program against the decode
// function itself, executed by an embedded JavaScript engine.
package jscheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ytget/ytfetch/youtube/cipher"
)

// Engine evaluates src and calls the global function fn with one string argument.
type Engine interface {
	Name() string
	Call(ctx context.Context, src, fn, arg string) (string, error)
}

// Engine names accepted by New.
const (
	EngineGoja = "goja"
	EngineOtto = "otto"
)

// New returns the engine registered under name. An empty name selects goja.
func New(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineGoja:
		return Goja{}, nil
	case EngineOtto:
		return Otto{}, nil
	}
	return nil, fmt.Errorf("unknown javascript engine %q", name)
}

// ErrInterrupted is returned when ctx ends while a script runs.
var ErrInterrupted = errors.New("script interrupted")

// Mismatch reports a sample on which the program and the script disagree.
type Mismatch struct {
	Engine  string
	Input   string
	Program string
	Script  string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%s: program gives %q, script gives %q for %q", m.Engine, m.Program, m.Script, m.Input)
}

// Samples returns n deterministic signature-like inputs of varying length.
func Samples(n int) []string {
	const alphabet = "0123456789ABCDEFabcdef"
	out := make([]string, n)
	for i := range out {
		size := 40 + (i*7)%50
		var b strings.Builder
		for j := 0; j < size; j++ {
			b.WriteByte(alphabet[(i*31+j*17)%len(alphabet)])
		}
		if i%3 == 0 {
			b.WriteString(".")
		}
		out[i] = b.String()
	}
	return out
}

// Verify runs the decode function of script on every sample and compares
// the result with p. It returns a *Mismatch on the first disagreement.
func Verify(ctx context.Context, e Engine, script string, p cipher.Program, samples []string) error {
	src, err := cipher.DecodeSnippet(script)
	if err != nil {
		return err
	}
	for _, s := range samples {
		got, err := e.Call(ctx, src, cipher.DecodeFunc, s)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		if want := p.Decipher(s); got != want {
			return &Mismatch{Engine: e.Name(), Input: s, Program: want, Script: got}
		}
	}
	return nil
}
