package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ErrEmpty    = errors.New("empty domain expression")
	ErrSyntax   = errors.New("malformed domain token")
	ErrInverted = errors.New("range low bound exceeds high bound")
	ErrOverflow = errors.New("integer does not fit in 64 bits")
	ErrMixed    = errors.New("a range override must be the only token")
)

// TokenError ties a parse failure to the token that caused it.
type TokenError struct {
	Token string
	Err   error
}

func (e *TokenError) Error() string { return fmt.Sprintf("token %q: %v", e.Token, e.Err) }

func (e *TokenError) Unwrap() error { return e.Err }

var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Sentinel", Pattern: `[-+]?∞|\$`},
	{Name: "Punct", Pattern: `[\[\]:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// tokenNode is the grammar of a single comma-free token.
type tokenNode struct {
	Range *rangeNode `  "[" @@ "]"`
	Value *string    `| @Int`
}

type rangeNode struct {
	Low  string `@(Int | Sentinel) ":"`
	High string `@(Int | Sentinel)`
}

var tokenParser = participle.MustBuild[tokenNode](
	participle.Lexer(notationLexer),
	participle.Elide("Whitespace"),
)

// ParseCell parses a table cell. Tokens that fail to parse are skipped and
// reported in the second return value; a blank cell yields no items and no
// errors.
func ParseCell(text string) ([]Item, []error) {
	var (
		items   []Item
		skipped []error
	)
	for _, tok := range splitTokens(text) {
		it, err := parseToken(tok)
		if err != nil {
			skipped = append(skipped, &TokenError{Token: tok, Err: err})
			continue
		}
		items = append(items, it)
	}
	return items, skipped
}

// ParseOverride parses a user input field. Unlike ParseCell it fails on the
// first bad token: an override must express exactly one range or a list of
// integers.
func ParseOverride(text string) (Override, error) {
	toks := splitTokens(text)
	if len(toks) == 0 {
		return Override{}, ErrEmpty
	}
	var values []int64
	for _, tok := range toks {
		it, err := parseToken(tok)
		if err != nil {
			return Override{}, &TokenError{Token: tok, Err: err}
		}
		if it.Kind == KindRange {
			if len(toks) != 1 {
				return Override{}, &TokenError{Token: tok, Err: ErrMixed}
			}
			return Override{Kind: OverrideRange, Low: it.Low, High: it.High}, nil
		}
		values = append(values, it.Value)
	}
	return Override{Kind: OverrideList, Values: values}, nil
}

func splitTokens(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseToken(tok string) (Item, error) {
	node, err := tokenParser.ParseString("", tok)
	if err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if node.Value != nil {
		v, err := parseInt(*node.Value)
		if err != nil {
			return Item{}, err
		}
		return Value(v), nil
	}
	low, err := parseBound(node.Range.Low, -1)
	if err != nil {
		return Item{}, err
	}
	high, err := parseBound(node.Range.High, 1)
	if err != nil {
		return Item{}, err
	}
	if low.Cmp(high) > 0 {
		return Item{}, ErrInverted
	}
	return Range(low, high), nil
}

// parseBound interprets one side of a range. side is -1 for the left bound
// and +1 for the right one: "$" means the infinity of its own side, "∞" is
// only accepted on the right and "-∞" only on the left.
func parseBound(s string, side int8) (Bound, error) {
	switch s {
	case "$":
		return Bound{Inf: side}, nil
	case "∞", "+∞":
		if side > 0 {
			return PosInf, nil
		}
		return Bound{}, fmt.Errorf("%w: %q cannot open a range", ErrSyntax, s)
	case "-∞":
		if side < 0 {
			return NegInf, nil
		}
		return Bound{}, fmt.Errorf("%w: %q cannot close a range", ErrSyntax, s)
	}
	v, err := parseInt(s)
	if err != nil {
		return Bound{}, err
	}
	return Finite(v), nil
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, s)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}
