package coverage

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"covgen/internal/domain"
)

var (
	ErrCondition = errors.New("malformed cross condition")
	ErrCross     = errors.New("invalid cross")
)

// conditionLexer tokenizes the shorthand "cov_a{1,2} && !cov_b{[3:4]}".
// A whole brace group is one Set token.
var conditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_$]*`},
	{Name: "Set", Pattern: `\{[^{}]*\}`},
	{Name: "Op", Pattern: `&&|\|\||!`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	identTok = conditionLexer.Symbols()["Ident"]
	setTok   = conditionLexer.Symbols()["Set"]
	wsTok    = conditionLexer.Symbols()["Whitespace"]
)

// ConvertShorthand expands every "name{values}" in cond into
// "binsof(name) intersect {values}". Boolean connectives, parentheses and
// spacing are kept as written.
func ConvertShorthand(cond string) (string, error) {
	out, _, err := expand(cond)
	return out, err
}

// ShorthandRefs returns the coverpoint names cond refers to, in order.
func ShorthandRefs(cond string) ([]string, error) {
	_, refs, err := expand(cond)
	return refs, err
}

func expand(cond string) (string, []string, error) {
	lex, err := conditionLexer.LexString("", cond)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCondition, err)
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCondition, err)
	}

	var (
		b    strings.Builder
		refs []string
	)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case identTok:
			j := i + 1
			for j < len(toks) && toks[j].Type == wsTok {
				j++
			}
			if j >= len(toks) || toks[j].Type != setTok {
				return "", nil, fmt.Errorf("%w: %s has no {values}", ErrCondition, tok.Value)
			}
			set, err := checkSet(toks[j].Value)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s%s: %v", ErrCondition, tok.Value, toks[j].Value, err)
			}
			fmt.Fprintf(&b, "binsof(%s) intersect {%s}", tok.Value, set)
			refs = append(refs, tok.Value)
			i = j
		case setTok:
			return "", nil, fmt.Errorf("%w: %s is not attached to a coverpoint", ErrCondition, tok.Value)
		default:
			b.WriteString(tok.Value)
		}
	}
	if len(refs) == 0 {
		return "", nil, fmt.Errorf("%w: %q names no coverpoint", ErrCondition, cond)
	}
	return strings.TrimSpace(b.String()), refs, nil
}

// checkSet parses the inside of a brace group as domain notation and
// returns it in canonical form, so every infinity spelling reads "$".
func checkSet(set string) (string, error) {
	inner := strings.TrimSpace(set[1 : len(set)-1])
	if inner == "" {
		return "", errors.New("empty value set")
	}
	items, skipped := domain.ParseCell(inner)
	if len(skipped) > 0 {
		return "", skipped[0]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ","), nil
}

// SplitConditions splits a field holding several conditions separated by
// semicolons.
func SplitConditions(field string) []string {
	var out []string
	for _, c := range strings.Split(field, ";") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether s can be used verbatim as a bin, cross or
// coverpoint name.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// NewCross validates a cross spec and expands its conditions. Every
// condition may only refer to coverpoints the cross itself lists.
func NewCross(name string, coverpoints, illegal, ignore []string) (Cross, error) {
	if !identRe.MatchString(name) {
		return Cross{}, fmt.Errorf("%w: name %q is not an identifier", ErrCross, name)
	}
	if len(coverpoints) < 2 {
		return Cross{}, fmt.Errorf("%w: %s needs at least two coverpoints", ErrCross, name)
	}
	listed := make(map[string]bool, len(coverpoints))
	for _, cp := range coverpoints {
		if !identRe.MatchString(cp) {
			return Cross{}, fmt.Errorf("%w: coverpoint %q is not an identifier", ErrCross, cp)
		}
		if listed[cp] {
			return Cross{}, fmt.Errorf("%w: coverpoint %s listed twice", ErrCross, cp)
		}
		listed[cp] = true
	}

	c := Cross{Name: name, Coverpoints: append([]string(nil), coverpoints...)}
	build := func(kind string, conds []string) ([]Condition, error) {
		var out []Condition
		for i, cond := range conds {
			expr, refs, err := expand(cond)
			if err != nil {
				return nil, err
			}
			for _, r := range refs {
				if !listed[r] {
					return nil, fmt.Errorf("%w: %s condition refers to %s, which %s does not cross", ErrCondition, kind, r, name)
				}
			}
			out = append(out, Condition{Name: name + "_" + kind + "_" + strconv.Itoa(i+1), Expr: expr})
		}
		return out, nil
	}
	var err error
	if c.Illegal, err = build("illegal", illegal); err != nil {
		return Cross{}, err
	}
	if c.Ignore, err = build("ignore", ignore); err != nil {
		return Cross{}, err
	}
	return c, nil
}
