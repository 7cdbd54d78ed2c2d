package eval

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// patternRune is one element of a like pattern: either a wildcard or a
// literal rune. Patterns are kept in source form on the AST so `\*`
// (literal star) and `*` (wildcard) stay distinguishable; they are
// decoded here at match time.
type patternRune struct {
	wildcard bool
	r        rune
}

func (e *evaluator) like(n policy.NodeLike) (types.Value, error) {
	v, err := e.eval(n.Arg)
	if err != nil {
		return nil, err
	}
	s, ok := v.(types.String)
	if !ok {
		return nil, typeMismatch("string", v.TypeName())
	}
	pattern, err := decodePattern(n.Pattern)
	if err != nil {
		return nil, faultf(FaultTypeMismatch, "invalid like pattern: %v", err)
	}
	return types.Boolean(matchPattern(pattern, []rune(string(s)))), nil
}

func decodePattern(raw string) ([]patternRune, error) {
	var out []patternRune
	i := 0
	for i < len(raw) {
		r, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		if r == '*' {
			out = append(out, patternRune{wildcard: true})
			continue
		}
		if r != '\\' {
			out = append(out, patternRune{r: r})
			continue
		}
		if i >= len(raw) {
			return nil, fmt.Errorf("pattern ends in a bare backslash")
		}
		esc := raw[i]
		i++
		switch esc {
		case '*':
			out = append(out, patternRune{r: '*'})
		case 'n':
			out = append(out, patternRune{r: '\n'})
		case 'r':
			out = append(out, patternRune{r: '\r'})
		case 't':
			out = append(out, patternRune{r: '\t'})
		case '0':
			out = append(out, patternRune{r: 0})
		case '\\', '\'', '"':
			out = append(out, patternRune{r: rune(esc)})
		case 'u':
			code, rest, err := decodeUnicodeEscape(raw[i:])
			if err != nil {
				return nil, err
			}
			out = append(out, patternRune{r: code})
			i = len(raw) - len(rest)
		default:
			return nil, fmt.Errorf("unknown escape `\\%c`", esc)
		}
	}
	return out, nil
}

func decodeUnicodeEscape(s string) (rune, string, error) {
	if !strings.HasPrefix(s, "{") {
		return 0, "", fmt.Errorf("`\\u` escape missing `{`")
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return 0, "", fmt.Errorf("`\\u` escape missing `}`")
	}
	code, err := strconv.ParseUint(s[1:end], 16, 32)
	if err != nil {
		return 0, "", fmt.Errorf("bad `\\u` escape: %v", err)
	}
	return rune(code), s[end+1:], nil
}

// matchPattern is iterative wildcard matching with backtracking over the
// most recent star. Linear in the common case, never recursive.
func matchPattern(pattern []patternRune, s []rune) bool {
	p, i := 0, 0
	starP, starI := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p].wildcard:
			starP, starI = p, i
			p++
		case p < len(pattern) && pattern[p].r == s[i]:
			p++
			i++
		case starP >= 0:
			starI++
			i = starI
			p = starP + 1
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p].wildcard {
		p++
	}
	return p == len(pattern)
}
