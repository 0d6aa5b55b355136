package types

import (
	"fmt"
	"strings"
)

// Predicate is a boolean filter over a single table's rows (or, for join
// conditions, over the combined column set of two sides). The planner only
// ever inspects predicates structurally; it never evaluates them.
type Predicate interface {
	// Key returns a normalized rendering used for implication checks and
	// deterministic output.
	Key() string

	// Columns appends the bare columns the predicate references.
	Columns(dst []string) []string
}

// Equality is expr = value.
type Equality struct {
	Expr  Expr
	Value interface{}
}

// Range is low OP expr OP high. A nil bound is unbounded on that side.
type Range struct {
	Expr    Expr
	Low     interface{}
	High    interface{}
	IncLow  bool
	IncHigh bool
}

// Like is expr LIKE pattern, pattern being a SQL LIKE pattern with % and _.
type Like struct {
	Expr    Expr
	Pattern string
}

// And is the conjunction of its children.
type And struct {
	Children []Predicate
}

// Or is the disjunction of its children.
type Or struct {
	Children []Predicate
}

// NullTest is expr IS NULL, or expr IS NOT NULL when Negated.
type NullTest struct {
	Expr    Expr
	Negated bool
}

func (p Equality) Key() string {
	return fmt.Sprintf("%s = %v", p.Expr.Key(), p.Value)
}

func (p Equality) Columns(dst []string) []string {
	return p.Expr.Columns(dst)
}

func (p Range) Key() string {
	var sb strings.Builder
	if p.Low != nil {
		op := ">"
		if p.IncLow {
			op = ">="
		}
		fmt.Fprintf(&sb, "%s %s %v", p.Expr.Key(), op, p.Low)
	}
	if p.High != nil {
		if sb.Len() > 0 {
			sb.WriteString(" and ")
		}
		op := "<"
		if p.IncHigh {
			op = "<="
		}
		fmt.Fprintf(&sb, "%s %s %v", p.Expr.Key(), op, p.High)
	}
	if sb.Len() == 0 {
		return p.Expr.Key() + " unbounded"
	}
	return sb.String()
}

func (p Range) Columns(dst []string) []string {
	return p.Expr.Columns(dst)
}

func (p Like) Key() string {
	return fmt.Sprintf("%s like %q", p.Expr.Key(), p.Pattern)
}

func (p Like) Columns(dst []string) []string {
	return p.Expr.Columns(dst)
}

func (p And) Key() string {
	parts := make([]string, len(p.Children))
	for i, c := range p.Children {
		parts[i] = c.Key()
	}
	return "(" + strings.Join(parts, " and ") + ")"
}

func (p And) Columns(dst []string) []string {
	for _, c := range p.Children {
		dst = c.Columns(dst)
	}
	return dst
}

func (p Or) Key() string {
	parts := make([]string, len(p.Children))
	for i, c := range p.Children {
		parts[i] = c.Key()
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

func (p Or) Columns(dst []string) []string {
	for _, c := range p.Children {
		dst = c.Columns(dst)
	}
	return dst
}

func (p NullTest) Key() string {
	if p.Negated {
		return p.Expr.Key() + " is not null"
	}
	return p.Expr.Key() + " is null"
}

func (p NullTest) Columns(dst []string) []string {
	return p.Expr.Columns(dst)
}

// Conjuncts flattens a predicate into its top-level AND terms. A nil
// predicate yields nil.
func Conjuncts(p Predicate) []Predicate {
	if p == nil {
		return nil
	}
	and, ok := p.(And)
	if !ok {
		return []Predicate{p}
	}
	var out []Predicate
	for _, c := range and.Children {
		out = append(out, Conjuncts(c)...)
	}
	return out
}

// AndOf rebuilds a predicate from conjuncts, collapsing the trivial cases.
func AndOf(conjuncts []Predicate) Predicate {
	switch len(conjuncts) {
	case 0:
		return nil
	case 1:
		return conjuncts[0]
	default:
		return And{Children: conjuncts}
	}
}

// LikePrefix extracts the literal prefix of a LIKE pattern, stopping at the
// first wildcard. The second return is false when the pattern starts with a
// wildcard, in which case no index range can be derived.
func LikePrefix(pattern string) (string, bool) {
	i := strings.IndexAny(pattern, "%_")
	if i < 0 {
		return pattern, pattern != ""
	}
	return pattern[:i], i > 0
}

// PrefixUpperBound returns the smallest string greater than every string
// with the given prefix, by incrementing the last byte. Returns false when
// no such bound exists (all 0xff).
func PrefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
