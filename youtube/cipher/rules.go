package cipher

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// ident matches a minified JavaScript identifier.
const ident = `[$a-zA-Z_][\w$]*`

// matchTimeout bounds every match against player script text. A match that
// runs out of time counts as a miss.
const matchTimeout = 2 * time.Second

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.Singleline)
	re.MatchTimeout = matchTimeout
	return re
}

func compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.Singleline)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

func find(re *regexp2.Regexp, s string) *regexp2.Match {
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil
	}
	return m
}

func group(m *regexp2.Match, name string) string {
	if g := m.GroupByName(name); g != nil {
		return g.String()
	}
	return ""
}

// Call sites that hand the ciphered value to the decode function.
var nameIdioms = []*regexp2.Regexp{
	// c=a.sig||Xy(a.s)
	mustCompile(`=\s*(` + ident + `)\.sig\|\|(?<fn>` + ident + `)\(\1\.s\)`),
	// d.set("signature",Xy(c))
	mustCompile(ident + `\.set\s*\(\s*"signature"\s*,\s*(?<fn>` + ident + `)\s*\(\s*` + ident + `\s*\)`),
}

// Declarations of the decode function. %s is the escaped function name.
var bodyIdioms = []string{
	// Xy=function(a){...} and obj.Xy=function(a){...}
	`(?<![\w$])%s\s*=\s*function\s*\(\s*` + ident + `\s*\)\s*\{(?<body>.*?)\}`,
	// function Xy(a){...}
	`\bfunction\s+%s\s*\(\s*` + ident + `\s*\)\s*\{(?<body>.*?)\}`,
	// var Xy=function(a){...} and ,Xy=function(a){...}
	`(?:\bvar\s+|,\s*)%s\s*=\s*function\s*\(\s*` + ident + `\s*\)\s*\{(?<body>.*?)\}`,
}

// helperIdiom locates an object literal method. %s is the escaped name.
const helperIdiom = `(?<![\w$.])%s\s*:\s*function\s*\([^)]*\)\s*(?<body>\{[^{}]+\})`

// statementRule pairs a statement shape with the ops it emits.
type statementRule struct {
	name  string
	shape *regexp2.Regexp
	build func(e *extractor, m *regexp2.Match) ([]Op, error)
}

func emitNothing(*extractor, *regexp2.Match) ([]Op, error) { return nil, nil }

func emitReverse(*extractor, *regexp2.Match) ([]Op, error) { return []Op{Reverse()}, nil }

func emitSplice(_ *extractor, m *regexp2.Match) ([]Op, error) {
	n, err := strconv.Atoi(group(m, "n"))
	if err != nil {
		return nil, NewError(ErrCodeUnparsableInstruction, "splice argument out of range", m.String())
	}
	return []Op{Splice(n)}, nil
}

func emitHelper(e *extractor, m *regexp2.Match) ([]Op, error) {
	n, err := strconv.Atoi(group(m, "n"))
	if err != nil {
		return nil, NewError(ErrCodeUnparsableInstruction, "helper argument out of range", m.String())
	}
	kind, err := e.helperKind(group(m, "fn"))
	if err != nil {
		return nil, err
	}
	if kind == OpReverse {
		return []Op{Reverse()}, nil
	}
	return []Op{{Kind: kind, Arg: n}}, nil
}

// statementRules is checked in order; the first matching shape wins.
var statementRules = []statementRule{
	// a=a.split("")
	{name: "split", shape: mustCompile(`^(` + ident + `)\s*=\s*\1\.` + ident + `\(""\)$`), build: emitNothing},
	// a=a.reverse()
	{name: "reverse", shape: mustCompile(`^(` + ident + `)\s*=\s*\1\.` + ident + `\(\)$`), build: emitReverse},
	// a=a.slice(3)
	{name: "splice", shape: mustCompile(`^(` + ident + `)\s*=\s*\1\.` + ident + `\((?<n>[0-9]+)\)$`), build: emitSplice},
	// a=Xy(a,3) and a=Ob.Xy(a,3)
	{name: "assigned helper", shape: mustCompile(`^(` + ident + `)\s*=\s*(?:` + ident + `\.)?(?<fn>` + ident + `)\(\1,\s*(?<n>[0-9]+)\)$`), build: emitHelper},
	// Ob.Xy(a,3)
	{name: "helper", shape: mustCompile(`^(?:` + ident + `\.)?(?<fn>` + ident + `)\(` + ident + `,\s*(?<n>[0-9]+)\)$`), build: emitHelper},
	// return a.join("")
	{name: "join", shape: mustCompile(`^return\s+` + ident + `\.` + ident + `\(""\)$`), build: emitNothing},
}

// helperRules classifies the body of a helper method.
var helperRules = []struct {
	kind   OpKind
	shapes []*regexp2.Regexp
}{
	// {var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c}
	{kind: OpSwap, shapes: []*regexp2.Regexp{mustCompile(`\bvar\s+` + ident + `\s*=\s*` + ident + `\[0\]`)}},
	// {a.reverse()}
	{kind: OpReverse, shapes: []*regexp2.Regexp{mustCompile(`(?<![\w$])` + ident + `\.reverse\(`)}},
	// {return a.slice(b)} and {a.splice(0,b)}
	{kind: OpSplice, shapes: []*regexp2.Regexp{
		mustCompile(`\breturn\s*` + ident + `\.slice\b`),
		mustCompile(`(?<![\w$])` + ident + `\.splice\b`),
	}},
}

// extractor classifies the statements of one decode function.
type extractor struct {
	script  string
	helpers map[string]OpKind
}

func newExtractor(script string) *extractor {
	return &extractor{script: script, helpers: make(map[string]OpKind)}
}

func (e *extractor) program(body string) (Program, error) {
	prog := Program{}
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		ops, err := e.statement(stmt)
		if err != nil {
			return nil, err
		}
		prog = append(prog, ops...)
	}
	return prog, nil
}

func (e *extractor) statement(stmt string) ([]Op, error) {
	for _, rule := range statementRules {
		if m := find(rule.shape, stmt); m != nil {
			return rule.build(e, m)
		}
	}
	return nil, NewError(ErrCodeUnparsableInstruction, "unknown statement shape", stmt)
}

func (e *extractor) helperKind(name string) (OpKind, error) {
	if kind, ok := e.helpers[name]; ok {
		return kind, nil
	}
	body, err := HelperBody(e.script, name)
	if err != nil {
		return 0, err
	}
	for _, rule := range helperRules {
		for _, shape := range rule.shapes {
			if find(shape, body) != nil {
				e.helpers[name] = rule.kind
				return rule.kind, nil
			}
		}
	}
	return 0, NewError(ErrCodeUnparsableInstruction, "unknown helper body", map[string]string{"helper": name, "body": body})
}
