// Package binder turns SQL SELECT text into the planner's bound logical
// form: referenced tables, single-table filter predicates, the equi-join
// graph, and per-table output columns. Parsing is delegated to
// pganalyze/pg_query_go; the planner itself never sees SQL.
package binder

import (
	"fmt"
	"strconv"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/guileen/planlite/catalog"
	cerrors "github.com/guileen/planlite/catalog/errors"
	"github.com/guileen/planlite/types"
)

// Binder resolves SQL names against a catalog snapshot.
type Binder struct {
	catalog catalog.Catalog
}

// New creates a binder over a catalog snapshot.
func New(cat catalog.Catalog) *Binder {
	return &Binder{catalog: cat}
}

// boundTable tracks one FROM-clause entry during binding.
type boundTable struct {
	alias string
	def   *types.TableDefinition
	query *types.QueryTable
}

type bindState struct {
	tables []*boundTable
	joins  []types.JoinPredicate
}

// Bind parses a single SELECT statement and produces the planner input.
func (b *Binder) Bind(sql string) (*types.Query, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL query: %w", err)
	}
	if len(result.Stmts) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(result.Stmts))
	}
	sel := result.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil {
		return nil, fmt.Errorf("only SELECT statements can be planned")
	}
	if sel.GetOp() != pg_query.SetOperation_SETOP_NONE {
		return nil, fmt.Errorf("set operations are not supported")
	}
	if sel.GetWithClause() != nil {
		return nil, fmt.Errorf("WITH clauses are not supported")
	}

	st := &bindState{}
	var filters []types.Predicate
	for _, item := range sel.GetFromClause() {
		preds, err := b.bindFromItem(st, item)
		if err != nil {
			return nil, err
		}
		filters = append(filters, preds...)
	}
	if len(st.tables) == 0 {
		return nil, fmt.Errorf("query has no FROM clause")
	}

	if where := sel.GetWhereClause(); where != nil {
		preds, err := b.bindBoolean(st, where)
		if err != nil {
			return nil, err
		}
		filters = append(filters, preds...)
	}

	if err := b.bindTargets(st, sel.GetTargetList()); err != nil {
		return nil, err
	}

	q := &types.Query{Joins: st.joins}
	for _, bt := range st.tables {
		q.Tables = append(q.Tables, *bt.query)
	}
	// Distribute the collected filters onto their tables.
	for _, f := range filters {
		owner, err := b.filterOwner(st, f)
		if err != nil {
			return nil, err
		}
		qt := q.Table(owner)
		qt.Filter = types.AndOf(append(types.Conjuncts(qt.Filter), f))
	}
	return q, nil
}

// bindFromItem registers the tables of one FROM entry; JOIN ... ON
// conditions come back as predicates for later distribution.
func (b *Binder) bindFromItem(st *bindState, node *pg_query.Node) ([]types.Predicate, error) {
	if rv := node.GetRangeVar(); rv != nil {
		return nil, b.addTable(st, rv)
	}
	if je := node.GetJoinExpr(); je != nil {
		if je.GetJointype() != pg_query.JoinType_JOIN_INNER {
			return nil, fmt.Errorf("only inner joins are supported")
		}
		left, err := b.bindFromItem(st, je.GetLarg())
		if err != nil {
			return nil, err
		}
		right, err := b.bindFromItem(st, je.GetRarg())
		if err != nil {
			return nil, err
		}
		preds := append(left, right...)
		if quals := je.GetQuals(); quals != nil {
			qp, err := b.bindBoolean(st, quals)
			if err != nil {
				return nil, err
			}
			preds = append(preds, qp...)
		}
		return preds, nil
	}
	return nil, fmt.Errorf("unsupported FROM clause entry")
}

func (b *Binder) addTable(st *bindState, rv *pg_query.RangeVar) error {
	name := rv.GetRelname()
	def, err := b.catalog.Table(name)
	if err != nil {
		return err
	}
	alias := name
	if rv.GetAlias() != nil {
		alias = rv.GetAlias().GetAliasname()
	}
	for _, bt := range st.tables {
		if bt.alias == alias {
			return fmt.Errorf("duplicate table alias %q", alias)
		}
	}
	st.tables = append(st.tables, &boundTable{
		alias: alias,
		def:   def,
		query: &types.QueryTable{Table: name},
	})
	return nil
}

// bindBoolean converts a boolean expression into predicates. Top-level
// ANDs are flattened; equality between columns of two tables becomes a
// join edge instead of a filter.
func (b *Binder) bindBoolean(st *bindState, node *pg_query.Node) ([]types.Predicate, error) {
	if be := node.GetBoolExpr(); be != nil && be.GetBoolop() == pg_query.BoolExprType_AND_EXPR {
		var preds []types.Predicate
		for _, arg := range be.GetArgs() {
			sub, err := b.bindBoolean(st, arg)
			if err != nil {
				return nil, err
			}
			preds = append(preds, sub...)
		}
		return preds, nil
	}

	// A qualified = qualified comparison is a join edge.
	if jp, ok, err := b.tryJoinPredicate(st, node); err != nil {
		return nil, err
	} else if ok {
		st.joins = append(st.joins, jp)
		return nil, nil
	}

	pred, err := b.bindPredicate(st, node)
	if err != nil {
		return nil, err
	}
	return []types.Predicate{pred}, nil
}

// tryJoinPredicate recognizes t1.c1 = t2.c2 between distinct tables.
func (b *Binder) tryJoinPredicate(st *bindState, node *pg_query.Node) (types.JoinPredicate, bool, error) {
	ae := node.GetAExpr()
	if ae == nil || ae.GetKind() != pg_query.A_Expr_Kind_AEXPR_OP || operatorName(ae) != "=" {
		return types.JoinPredicate{}, false, nil
	}
	lcol := ae.GetLexpr().GetColumnRef()
	rcol := ae.GetRexpr().GetColumnRef()
	if lcol == nil || rcol == nil {
		return types.JoinPredicate{}, false, nil
	}
	lt, lc, err := b.resolveColumnRef(st, lcol)
	if err != nil {
		return types.JoinPredicate{}, false, err
	}
	rt, rc, err := b.resolveColumnRef(st, rcol)
	if err != nil {
		return types.JoinPredicate{}, false, err
	}
	if lt == rt {
		return types.JoinPredicate{}, false, nil
	}
	return types.JoinPredicate{
		LeftTable:   lt,
		LeftColumn:  lc,
		RightTable:  rt,
		RightColumn: rc,
	}, true, nil
}

// bindPredicate converts a non-join scalar condition.
func (b *Binder) bindPredicate(st *bindState, node *pg_query.Node) (types.Predicate, error) {
	if be := node.GetBoolExpr(); be != nil {
		var children []types.Predicate
		for _, arg := range be.GetArgs() {
			c, err := b.bindPredicate(st, arg)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		switch be.GetBoolop() {
		case pg_query.BoolExprType_AND_EXPR:
			return types.AndOf(children), nil
		case pg_query.BoolExprType_OR_EXPR:
			return types.Or{Children: children}, nil
		default:
			return nil, fmt.Errorf("NOT expressions are not supported")
		}
	}

	if nt := node.GetNullTest(); nt != nil {
		expr, err := b.bindExpr(st, nt.GetArg())
		if err != nil {
			return nil, err
		}
		return types.NullTest{
			Expr:    expr,
			Negated: nt.GetNulltesttype() == pg_query.NullTestType_IS_NOT_NULL,
		}, nil
	}

	ae := node.GetAExpr()
	if ae == nil {
		return nil, fmt.Errorf("unsupported WHERE expression")
	}

	switch ae.GetKind() {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		return b.bindComparison(st, ae)
	case pg_query.A_Expr_Kind_AEXPR_LIKE:
		return b.bindLike(st, ae)
	case pg_query.A_Expr_Kind_AEXPR_BETWEEN:
		return b.bindBetween(st, ae)
	default:
		return nil, fmt.Errorf("unsupported operator expression")
	}
}

func (b *Binder) bindComparison(st *bindState, ae *pg_query.A_Expr) (types.Predicate, error) {
	expr, err := b.bindExpr(st, ae.GetLexpr())
	if err != nil {
		return nil, err
	}
	value, err := constValue(ae.GetRexpr())
	if err != nil {
		return nil, err
	}

	switch operatorName(ae) {
	case "=":
		return types.Equality{Expr: expr, Value: value}, nil
	case "<":
		return types.Range{Expr: expr, High: value}, nil
	case "<=":
		return types.Range{Expr: expr, High: value, IncHigh: true}, nil
	case ">":
		return types.Range{Expr: expr, Low: value}, nil
	case ">=":
		return types.Range{Expr: expr, Low: value, IncLow: true}, nil
	case "~~":
		pattern, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("LIKE pattern must be a string literal")
		}
		return types.Like{Expr: expr, Pattern: pattern}, nil
	default:
		return nil, fmt.Errorf("unsupported comparison operator %q", operatorName(ae))
	}
}

func (b *Binder) bindLike(st *bindState, ae *pg_query.A_Expr) (types.Predicate, error) {
	expr, err := b.bindExpr(st, ae.GetLexpr())
	if err != nil {
		return nil, err
	}
	value, err := constValue(ae.GetRexpr())
	if err != nil {
		return nil, err
	}
	pattern, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("LIKE pattern must be a string literal")
	}
	return types.Like{Expr: expr, Pattern: pattern}, nil
}

func (b *Binder) bindBetween(st *bindState, ae *pg_query.A_Expr) (types.Predicate, error) {
	expr, err := b.bindExpr(st, ae.GetLexpr())
	if err != nil {
		return nil, err
	}
	bounds := ae.GetRexpr().GetList().GetItems()
	if len(bounds) != 2 {
		return nil, fmt.Errorf("malformed BETWEEN expression")
	}
	low, err := constValue(bounds[0])
	if err != nil {
		return nil, err
	}
	high, err := constValue(bounds[1])
	if err != nil {
		return nil, err
	}
	return types.Range{Expr: expr, Low: low, High: high, IncLow: true, IncHigh: true}, nil
}

// bindExpr converts a scalar expression: a column reference or a function
// call over column references.
func (b *Binder) bindExpr(st *bindState, node *pg_query.Node) (types.Expr, error) {
	if cr := node.GetColumnRef(); cr != nil {
		_, col, err := b.resolveColumnRef(st, cr)
		if err != nil {
			return nil, err
		}
		return types.Column(col), nil
	}
	if fc := node.GetFuncCall(); fc != nil {
		names := fc.GetFuncname()
		if len(names) == 0 {
			return nil, fmt.Errorf("malformed function call")
		}
		name := names[len(names)-1].GetString_().GetSval()
		var args []types.Expr
		for _, arg := range fc.GetArgs() {
			a, err := b.bindExpr(st, arg)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return types.Func(name, args...), nil
	}
	if ac := node.GetAConst(); ac != nil {
		v, err := constValue(node)
		if err != nil {
			return nil, err
		}
		return types.Const{Value: v}, nil
	}
	return nil, fmt.Errorf("unsupported scalar expression")
}

// resolveColumnRef maps a possibly-qualified column reference to its
// owning table name and column name.
func (b *Binder) resolveColumnRef(st *bindState, cr *pg_query.ColumnRef) (string, string, error) {
	fields := cr.GetFields()
	switch len(fields) {
	case 1:
		col := fields[0].GetString_().GetSval()
		var owner *boundTable
		for _, bt := range st.tables {
			if bt.def.Column(col) == nil {
				continue
			}
			if owner != nil {
				return "", "", fmt.Errorf("ambiguous column reference %q", col)
			}
			owner = bt
		}
		if owner == nil {
			return "", "", cerrors.ErrColumnNotFound.WithDetail("%q", col)
		}
		return owner.def.Name, col, nil
	case 2:
		qualifier := fields[0].GetString_().GetSval()
		col := fields[1].GetString_().GetSval()
		for _, bt := range st.tables {
			if bt.alias != qualifier && bt.def.Name != qualifier {
				continue
			}
			if bt.def.Column(col) == nil {
				return "", "", cerrors.ErrColumnNotFound.WithDetail("%s.%s", qualifier, col)
			}
			return bt.def.Name, col, nil
		}
		return "", "", cerrors.ErrUnknownRelation.WithDetail("%q", qualifier)
	default:
		return "", "", fmt.Errorf("unsupported column reference")
	}
}

// bindTargets records which columns each table must produce.
func (b *Binder) bindTargets(st *bindState, targets []*pg_query.Node) error {
	for _, t := range targets {
		rt := t.GetResTarget()
		if rt == nil || rt.GetVal() == nil {
			return fmt.Errorf("unsupported select target")
		}
		val := rt.GetVal()

		if cr := val.GetColumnRef(); cr != nil {
			fields := cr.GetFields()
			// SELECT * and SELECT t.*
			if len(fields) >= 1 && fields[len(fields)-1].GetAStar() != nil {
				qualifier := ""
				if len(fields) == 2 {
					qualifier = fields[0].GetString_().GetSval()
				}
				b.expandStar(st, qualifier)
				continue
			}
			table, col, err := b.resolveColumnRef(st, cr)
			if err != nil {
				return err
			}
			addOutput(st, table, col)
			continue
		}

		// Function targets contribute their argument columns.
		expr, err := b.bindExpr(st, val)
		if err != nil {
			return fmt.Errorf("unsupported select target: %w", err)
		}
		for _, col := range expr.Columns(nil) {
			table, _, err := b.resolveColumnRef(st, columnRefNode(col))
			if err != nil {
				return err
			}
			addOutput(st, table, col)
		}
	}
	return nil
}

func (b *Binder) expandStar(st *bindState, qualifier string) {
	for _, bt := range st.tables {
		if qualifier != "" && bt.alias != qualifier && bt.def.Name != qualifier {
			continue
		}
		for _, col := range bt.def.Columns {
			addOutput(st, bt.def.Name, col.Name)
		}
	}
}

func addOutput(st *bindState, table, col string) {
	for _, bt := range st.tables {
		if bt.def.Name != table {
			continue
		}
		for _, existing := range bt.query.Output {
			if existing == col {
				return
			}
		}
		bt.query.Output = append(bt.query.Output, col)
	}
}

// filterOwner finds the single table a filter predicate references.
func (b *Binder) filterOwner(st *bindState, pred types.Predicate) (string, error) {
	owner := ""
	for _, col := range pred.Columns(nil) {
		table, _, err := b.resolveColumnRef(st, columnRefNode(col))
		if err != nil {
			return "", err
		}
		if owner == "" {
			owner = table
		} else if owner != table {
			return "", fmt.Errorf("filter references multiple tables: %s", pred.Key())
		}
	}
	if owner == "" {
		return "", fmt.Errorf("filter references no columns: %s", pred.Key())
	}
	return owner, nil
}

func operatorName(ae *pg_query.A_Expr) string {
	names := ae.GetName()
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1].GetString_().GetSval()
}

// constValue extracts a literal value from an A_Const node.
func constValue(node *pg_query.Node) (interface{}, error) {
	ac := node.GetAConst()
	if ac == nil {
		return nil, fmt.Errorf("expected a literal value")
	}
	switch {
	case ac.GetSval() != nil:
		return ac.GetSval().GetSval(), nil
	case ac.GetIval() != nil:
		return int64(ac.GetIval().GetIval()), nil
	case ac.GetFval() != nil:
		f, err := strconv.ParseFloat(ac.GetFval().GetFval(), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed numeric literal: %w", err)
		}
		return f, nil
	case ac.GetBoolval() != nil:
		return ac.GetBoolval().GetBoolval(), nil
	case ac.GetIsnull():
		return nil, fmt.Errorf("NULL literals are not supported in comparisons")
	default:
		return nil, fmt.Errorf("unsupported literal")
	}
}

// columnRefNode builds a pg_query ColumnRef for re-resolution of a bare
// column name.
func columnRefNode(col string) *pg_query.ColumnRef {
	return &pg_query.ColumnRef{
		Fields: []*pg_query.Node{pg_query.MakeStrNode(col)},
	}
}
