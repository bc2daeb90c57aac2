package cipher

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// DefaultPlayerBaseURL is where player scripts are served from.
const DefaultPlayerBaseURL = "https://s.ytimg.com/yts/jsbin/"

// playerIDRe matches both the JSON escaped "jsbin\/player-..." and the plain
// "jsbin/player-..." embedding of the player script path.
var playerIDRe = mustCompile(`jsbin\\?/(?<id>(?:html5)?player-.+?)\.js`)

// PlayerID returns the player script token embedded in a watch page,
// e.g. "player-en_US-vflOj6Vz8/base".
func PlayerID(page string) (string, error) {
	m := find(playerIDRe, page)
	if m == nil {
		return "", NewError(ErrCodePlayerNotFound, "player script reference not found in page")
	}
	return strings.ReplaceAll(group(m, "id"), `\/`, "/"), nil
}

// PlayerURL joins base and the page's player ID into a script URL.
func PlayerURL(base, page string) (string, error) {
	id, err := PlayerID(page)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = DefaultPlayerBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + id + ".js", nil
}

// FunctionName returns the name of the decode function called on the
// ciphered value.
func FunctionName(script string) (string, error) {
	for _, re := range nameIdioms {
		if m := find(re, script); m != nil {
			return group(m, "fn"), nil
		}
	}
	return "", NewError(ErrCodeFunctionNameNotFound, "decode function call site not found")
}

// FunctionBody returns the body of the named decode function without its braces.
func FunctionBody(script, name string) (string, error) {
	escaped := regexp2.Escape(name)
	for _, idiom := range bodyIdioms {
		re, err := compile(fmt.Sprintf(idiom, escaped))
		if err != nil {
			continue
		}
		if m := find(re, script); m != nil {
			return group(m, "body"), nil
		}
	}
	return "", NewError(ErrCodeFunctionBodyNotFound, "decode function declaration not found", name)
}

// HelperBody returns the braced body of an object literal method.
func HelperBody(script, name string) (string, error) {
	re, err := compile(fmt.Sprintf(helperIdiom, regexp2.Escape(name)))
	if err != nil {
		return "", NewError(ErrCodeHelperNotFound, "invalid helper name", name)
	}
	m := find(re, script)
	if m == nil {
		return "", NewError(ErrCodeHelperNotFound, "helper function not found", name)
	}
	return group(m, "body"), nil
}

// ExtractProgram derives the cipher program from a player script.
func ExtractProgram(script string) (Program, error) {
	name, err := FunctionName(script)
	if err != nil {
		return nil, err
	}
	body, err := FunctionBody(script, name)
	if err != nil {
		return nil, err
	}
	return newExtractor(script).program(body)
}

// ProgramFromBody classifies a decode function body. Helper methods are
// looked up in script.
func ProgramFromBody(script, body string) (Program, error) {
	return newExtractor(script).program(body)
}

// DecodeFunc is the JavaScript name DecodeSnippet gives the decode function.
const DecodeFunc = "decodeSignature"

var receiverRe = mustCompile(`(?<![\w$.])(?<obj>` + ident + `)\.` + ident + `\(`)

// objectIdiom matches "var Ob={...};" with one level of nested braces.
const objectIdiom = `\bvar\s+%s\s*=\s*\{(?:[^{}]|\{[^{}]*\})*\};`

// DecodeSnippet returns standalone JavaScript declaring the decode function
// as DecodeFunc together with the helper objects it calls.
func DecodeSnippet(script string) (string, error) {
	name, err := FunctionName(script)
	if err != nil {
		return "", err
	}
	body, err := FunctionBody(script, name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	seen := map[string]bool{}
	for m := find(receiverRe, body); m != nil; m, _ = receiverRe.FindNextMatch(m) {
		obj := group(m, "obj")
		if seen[obj] {
			continue
		}
		seen[obj] = true
		re, err := compile(fmt.Sprintf(objectIdiom, regexp2.Escape(obj)))
		if err != nil {
			continue
		}
		if decl := find(re, script); decl != nil {
			b.WriteString(decl.String())
			b.WriteString("\n")
		}
	}

	param := "a"
	if m := find(statementRules[0].shape, strings.TrimSpace(strings.SplitN(body, ";", 2)[0])); m != nil {
		param = m.GroupByNumber(1).String()
	}
	fmt.Fprintf(&b, "function %s(%s){%s}\n", DecodeFunc, param, body)
	return b.String(), nil
}
