package cipher

import (
	"fmt"
	"strconv"
	"strings"
)

// OpKind identifies one primitive of the signature transform.
type OpKind int

const (
	OpReverse OpKind = iota
	OpSplice
	OpSwap
)

func (k OpKind) String() string {
	switch k {
	case OpReverse:
		return "reverse"
	case OpSplice:
		return "splice"
	case OpSwap:
		return "swap"
	}
	return "unknown"
}

// Op is a single cipher step. Arg is ignored for OpReverse.
type Op struct {
	Kind OpKind
	Arg  int
}

// Reverse reverses the whole sequence.
func Reverse() Op { return Op{Kind: OpReverse} }

// Splice drops the first n elements.
func Splice(n int) Op { return Op{Kind: OpSplice, Arg: n} }

// Swap exchanges index 0 with index n mod the current length.
func Swap(n int) Op { return Op{Kind: OpSwap, Arg: n} }

func (o Op) String() string {
	if o.Kind == OpReverse {
		return o.Kind.String()
	}
	return o.Kind.String() + ":" + strconv.Itoa(o.Arg)
}

func (o Op) apply(sig []byte) []byte {
	switch o.Kind {
	case OpReverse:
		for i, j := 0, len(sig)-1; i < j; i, j = i+1, j-1 {
			sig[i], sig[j] = sig[j], sig[i]
		}
	case OpSplice:
		n := o.Arg
		if n < 0 {
			n = 0
		}
		if n >= len(sig) {
			return sig[:0]
		}
		return sig[n:]
	case OpSwap:
		if len(sig) <= 1 {
			return sig
		}
		idx := o.Arg % len(sig)
		if idx < 0 {
			idx += len(sig)
		}
		sig[0], sig[idx] = sig[idx], sig[0]
	}
	return sig
}

// Program is an ordered list of ops. A program is immutable once resolved
// and may be applied to any number of signatures.
type Program []Op

// Decipher applies p to the ciphered signature s byte by byte. The input is
// never shared with the caller so concurrent use of one Program is safe.
func (p Program) Decipher(s string) string {
	sig := []byte(s)
	for _, op := range p {
		sig = op.apply(sig)
	}
	return string(sig)
}

// Decipher is shorthand for p.Decipher(s).
func Decipher(p Program, s string) string {
	return p.Decipher(s)
}

// String renders the program as space separated ops, e.g. "reverse splice:2 swap:7".
func (p Program) String() string {
	parts := make([]string, len(p))
	for i, op := range p {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}

// ParseProgram parses the text form produced by Program.String.
func ParseProgram(text string) (Program, error) {
	fields := strings.Fields(text)
	p := make(Program, 0, len(fields))
	for _, f := range fields {
		name, arg, hasArg := strings.Cut(f, ":")
		switch name {
		case "reverse":
			if hasArg {
				return nil, fmt.Errorf("reverse takes no argument: %q", f)
			}
			p = append(p, Reverse())
		case "splice", "swap":
			n, err := strconv.Atoi(arg)
			if !hasArg || err != nil {
				return nil, fmt.Errorf("invalid argument in %q", f)
			}
			if name == "splice" {
				p = append(p, Splice(n))
			} else {
				p = append(p, Swap(n))
			}
		default:
			return nil, fmt.Errorf("unknown op %q", f)
		}
	}
	return p, nil
}
