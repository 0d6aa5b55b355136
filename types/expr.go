package types

import (
	"fmt"
	"strings"
)

// Expr is a scalar expression the planner understands structurally.
// The set is closed: column references, constants, and calls to a small
// whitelist of deterministic functions. Anything else is opaque and
// defeats both index matching and precise selectivity estimation.
type Expr interface {
	// Key returns the normalized form of the expression. Two expressions
	// with the same Key are treated as identical for index prefix
	// matching, partial-predicate implication, and statistics lookup.
	Key() string

	// Columns appends the bare columns referenced by the expression.
	Columns(dst []string) []string
}

// ColumnRef references a column of the table being planned.
type ColumnRef struct {
	Column string
}

// Const is a literal value appearing in an expression position.
type Const struct {
	Value interface{}
}

// FuncExpr is a function application over argument expressions.
type FuncExpr struct {
	Name string // lower-cased function name
	Args []Expr
}

// deterministicFuncs is the whitelist of functions the planner treats as
// immutable. An index on such an expression can be matched; anything not
// listed here is conservatively treated as non-deterministic.
var deterministicFuncs = map[string]bool{
	"lower":      true,
	"upper":      true,
	"abs":        true,
	"length":     true,
	"date_trunc": true,
}

// Column returns a reference to the named column.
func Column(name string) ColumnRef {
	return ColumnRef{Column: name}
}

// Func builds a function expression. The name is normalized to lower case.
func Func(name string, args ...Expr) FuncExpr {
	return FuncExpr{Name: strings.ToLower(name), Args: args}
}

func (c ColumnRef) Key() string {
	return c.Column
}

func (c ColumnRef) Columns(dst []string) []string {
	return append(dst, c.Column)
}

func (c Const) Key() string {
	return fmt.Sprintf("%v", c.Value)
}

func (c Const) Columns(dst []string) []string {
	return dst
}

func (f FuncExpr) Key() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.Key()
	}
	return f.Name + "(" + strings.Join(parts, ",") + ")"
}

func (f FuncExpr) Columns(dst []string) []string {
	for _, a := range f.Args {
		dst = a.Columns(dst)
	}
	return dst
}

// Deterministic reports whether the expression is built entirely from
// column references, constants, and whitelisted deterministic functions.
func Deterministic(e Expr) bool {
	switch v := e.(type) {
	case ColumnRef, Const:
		return true
	case FuncExpr:
		if !deterministicFuncs[v.Name] {
			return false
		}
		for _, a := range v.Args {
			if !Deterministic(a) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ParseKeyExpr parses an index key expression of the form "col" or
// "func(col)" as it appears in catalog documents. Nested calls are not
// supported in the serialized form.
func ParseKeyExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty index key expression")
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return Column(s), nil
	}
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("malformed index key expression %q", s)
	}
	name := strings.TrimSpace(s[:open])
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if name == "" || inner == "" || strings.ContainsAny(inner, "()") {
		return nil, fmt.Errorf("malformed index key expression %q", s)
	}
	args := strings.Split(inner, ",")
	exprs := make([]Expr, len(args))
	for i, a := range args {
		exprs[i] = Column(strings.TrimSpace(a))
	}
	return Func(name, exprs...), nil
}
