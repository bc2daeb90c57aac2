package jscheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytget/ytfetch/youtube/cipher"
)

const playerScript = `var Ob={Xy:function(a,b){a.splice(0,b)},
Rv:function(a){a.reverse()},
Sw:function(a,b){var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c;return a}};
Zq=function(a){a=a.split("");Ob.Rv(a,15);Ob.Sw(a,39);Ob.Xy(a,2);a=Ob.Sw(a,7);return a.join("")};
var g=function(d){var c=d.sig||Zq(d.s);return c};`

func engines(t *testing.T) []Engine {
	t.Helper()
	var out []Engine
	for _, name := range []string{EngineGoja, EngineOtto} {
		e, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		out = append(out, e)
	}
	return out
}

func TestNew(t *testing.T) {
	e, err := New("")
	if err != nil || e.Name() != EngineGoja {
		t.Fatalf("default engine = %v, %v", e, err)
	}
	if e, err := New("OTTO"); err != nil || e.Name() != EngineOtto {
		t.Fatalf("New(OTTO) = %v, %v", e, err)
	}
	if _, err := New("v8"); err == nil {
		t.Fatal("unknown engine should fail")
	}
}

func TestVerify(t *testing.T) {
	p, err := cipher.ExtractProgram(playerScript)
	if err != nil {
		t.Fatalf("ExtractProgram: %v", err)
	}
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			if err := Verify(context.Background(), e, playerScript, p, Samples(12)); err != nil {
				t.Fatalf("Verify: %v", err)
			}
		})
	}
}

func TestVerify_Mismatch(t *testing.T) {
	wrong := cipher.Program{cipher.Reverse(), cipher.Splice(2)}
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			err := Verify(context.Background(), e, playerScript, wrong, Samples(3))
			var m *Mismatch
			if !errors.As(err, &m) {
				t.Fatalf("expected *Mismatch, got %v", err)
			}
			if m.Engine != e.Name() || m.Program == m.Script {
				t.Errorf("unexpected mismatch %+v", m)
			}
		})
	}
}

func TestVerify_NoDecodeFunction(t *testing.T) {
	err := Verify(context.Background(), Goja{}, "var x=1;", cipher.Program{}, Samples(1))
	if cipher.CodeOf(err) != cipher.ErrCodeFunctionNameNotFound {
		t.Fatalf("expected name not found, got %v", err)
	}
}

func TestCall_Interrupted(t *testing.T) {
	const loop = `function spin(a){for(;;){}}`
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := e.Call(ctx, loop, "spin", "x")
			if !errors.Is(err, ErrInterrupted) {
				t.Fatalf("expected ErrInterrupted, got %v", err)
			}
		})
	}
}

func TestCall_Errors(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			if _, err := e.Call(context.Background(), "function (", "f", "x"); err == nil {
				t.Error("syntax error expected")
			}
			if _, err := e.Call(context.Background(), "var f=1;", "f", "x"); err == nil {
				t.Error("calling a non-function should fail")
			}
			got, err := e.Call(context.Background(), `function f(a){return a+"!"}`, "f", "x")
			if err != nil || got != "x!" {
				t.Errorf("Call = %q, %v", got, err)
			}
		})
	}
}

func TestSamples(t *testing.T) {
	a, b := Samples(5), Samples(5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("samples must be deterministic")
		}
		if len(a[i]) < 40 {
			t.Errorf("sample %d too short: %q", i, a[i])
		}
	}
}
