package types

// ColumnDefinition defines a single column of a table as the planner sees
// it. Statistics live separately in the catalog, keyed by expression.
type ColumnDefinition struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

// IndexDefinition defines an index available on a table. Keys are ordered
// key expressions in their serialized form ("col" or "func(col)"). Include
// lists non-key columns carried in the index for index-only scans. Where,
// when present, restricts which rows are indexed (partial index).
type IndexDefinition struct {
	Name    string               `json:"name"`
	Keys    []string             `json:"keys"`
	Include []string             `json:"include,omitempty"`
	Unique  bool                 `json:"unique"`
	Where   []IndexPredicateTerm `json:"where,omitempty"`
}

// IndexPredicateTerm is one conjunct of a partial index predicate. Op is
// "=" or "is not null"; richer partial predicates are not representable
// and such indexes are simply never matched.
type IndexPredicateTerm struct {
	Expr  string      `json:"expr"`
	Op    string      `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

// TableDefinition defines a table, its columns, and its indexes. RowCount
// is the statistics-derived estimate, not a live count.
type TableDefinition struct {
	Name     string             `json:"name"`
	RowCount int64              `json:"row_count"`
	Columns  []ColumnDefinition `json:"columns"`
	Indexes  []IndexDefinition  `json:"indexes,omitempty"`
}

// Column returns the definition of the named column, or nil.
func (t *TableDefinition) Column(name string) *ColumnDefinition {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// KeyExprs parses the index key expressions. Unparseable keys make the
// whole index unusable for matching, signalled by a nil return.
func (ix *IndexDefinition) KeyExprs() []Expr {
	exprs := make([]Expr, len(ix.Keys))
	for i, k := range ix.Keys {
		e, err := ParseKeyExpr(k)
		if err != nil {
			return nil
		}
		exprs[i] = e
	}
	return exprs
}

// WherePredicate converts the partial predicate terms into planner
// predicates. Returns nil, false when a term is not representable.
func (ix *IndexDefinition) WherePredicate() ([]Predicate, bool) {
	if len(ix.Where) == 0 {
		return nil, true
	}
	out := make([]Predicate, 0, len(ix.Where))
	for _, term := range ix.Where {
		expr, err := ParseKeyExpr(term.Expr)
		if err != nil {
			return nil, false
		}
		switch term.Op {
		case "=":
			out = append(out, Equality{Expr: expr, Value: term.Value})
		case "is not null":
			out = append(out, NullTest{Expr: expr, Negated: true})
		default:
			return nil, false
		}
	}
	return out, true
}
