package cipher

import (
	"math/rand"
	"testing"
)

func TestDecipher_Examples(t *testing.T) {
	tests := []struct {
		name string
		prog Program
		in   string
		want string
	}{
		{name: "splice then reverse", prog: Program{Splice(2), Reverse()}, in: "abcdef", want: "fedc"},
		{name: "full program", prog: Program{Reverse(), Swap(39), Splice(2), Swap(7)}, in: "abcdefghij", want: "jgfedcbh"},
		{name: "swap uses current length", prog: Program{Splice(3), Swap(5)}, in: "abcdefgh", want: "defgh"},
		{name: "swap", prog: Program{Swap(5)}, in: "abcdefgh", want: "fbcdeagh"},
		{name: "splice past end", prog: Program{Splice(10)}, in: "abc", want: ""},
		{name: "empty program", prog: Program{}, in: "abc", want: "abc"},
		{name: "empty input", prog: Program{Reverse(), Swap(3), Splice(1)}, in: "", want: ""},
		{name: "bytes", prog: Program{Reverse()}, in: "a\xc3\xa9", want: "\xa9\xc3a"},
		{name: "multi-byte splice", prog: Program{Splice(1)}, in: "é12", want: "\xa912"},
		{name: "invalid utf-8 kept", prog: Program{Swap(2)}, in: "ab\xffcd", want: "\xffbacd"},
		{name: "negative swap", prog: Program{Swap(-1)}, in: "abc", want: "cba"},
		{name: "negative splice", prog: Program{Splice(-4)}, in: "abc", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prog.Decipher(tt.in); got != tt.want {
				t.Errorf("Decipher(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got := Decipher(tt.prog, tt.in); got != tt.want {
				t.Errorf("Decipher func = %q, want %q", got, tt.want)
			}
		})
	}
}

func randomProgram(r *rand.Rand) Program {
	p := make(Program, r.Intn(8))
	for i := range p {
		switch r.Intn(3) {
		case 0:
			p[i] = Reverse()
		case 1:
			p[i] = Splice(r.Intn(6))
		default:
			p[i] = Swap(r.Intn(100))
		}
	}
	return p
}

func randomString(r *rand.Rand) string {
	const alphabet = "ABCDEFabcdef0123456789.="
	b := make([]byte, r.Intn(40))
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	switch r.Intn(4) {
	case 0:
		return string(b) + "é☃"
	case 1:
		return "\xff" + string(b) + "\xfe\x80"
	}
	return string(b)
}

func TestDecipher_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		s := randomString(r)
		p := randomProgram(r)

		if a, b := p.Decipher(s), p.Decipher(s); a != b {
			t.Fatalf("%v not deterministic on %q: %q vs %q", p, s, a, b)
		}
		if got := (Program{Reverse(), Reverse()}).Decipher(s); got != s {
			t.Fatalf("double reverse of %q = %q", s, got)
		}

		n := r.Intn(50)
		want := len(s) - n
		if want < 0 {
			want = 0
		}
		if got := len((Program{Splice(n)}).Decipher(s)); got != want {
			t.Fatalf("len(splice %d of %q) = %d, want %d", n, s, got, want)
		}
	}
}

func TestDecipher_InvalidUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{"ab\xffcd", "\xc3", "é12", "\x80\x81\x82"} {
		if got := (Program{Reverse(), Reverse()}).Decipher(s); got != s {
			t.Errorf("double reverse of %q = %q", s, got)
		}
		if got := len((Program{Splice(1)}).Decipher(s)); got != len(s)-1 {
			t.Errorf("splice 1 of %q has length %d, want %d", s, got, len(s)-1)
		}
	}
}

func TestSwap_SingleByte(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 1000} {
		if got := (Program{Swap(n)}).Decipher("x"); got != "x" {
			t.Errorf("Swap(%d) on length 1 = %q", n, got)
		}
	}
}

func TestDecipher_DoesNotShareState(t *testing.T) {
	p := Program{Reverse(), Swap(1)}
	in := "abc"
	_ = p.Decipher(in)
	if in != "abc" {
		t.Fatal("input modified")
	}
	if len(p) != 2 || p[0] != Reverse() || p[1] != Swap(1) {
		t.Fatalf("program modified: %v", p)
	}
}

func TestProgram_String(t *testing.T) {
	p := Program{Reverse(), Splice(2), Swap(7)}
	if got := p.String(); got != "reverse splice:2 swap:7" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Program{}).String(); got != "" {
		t.Errorf("empty String() = %q", got)
	}
}

func TestParseProgram(t *testing.T) {
	p, err := ParseProgram(" reverse  splice:2 swap:7 ")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	want := Program{Reverse(), Splice(2), Swap(7)}
	if p.String() != want.String() {
		t.Fatalf("got %v, want %v", p, want)
	}

	for _, bad := range []string{"reverse:1", "splice", "swap:x", "rotate:2"} {
		if _, err := ParseProgram(bad); err == nil {
			t.Errorf("ParseProgram(%q) should fail", bad)
		}
	}
}
