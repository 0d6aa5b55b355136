package types

// QueryTable is one table referenced by a query, together with the filter
// that applies to it alone and the columns the query needs from it.
type QueryTable struct {
	Table  string
	Filter Predicate
	Output []string
}

// JoinPredicate is an equi-join condition between columns of two tables.
type JoinPredicate struct {
	LeftTable   string
	LeftColumn  string
	RightTable  string
	RightColumn string
}

// Query is the already-bound logical input to the planner: the referenced
// tables with their single-table filters, and the join graph connecting
// them. Producing this from SQL text is the binder's job; the planner never
// sees raw SQL.
type Query struct {
	Tables []QueryTable
	Joins  []JoinPredicate
}

// Table returns the QueryTable with the given name, or nil.
func (q *Query) Table(name string) *QueryTable {
	for i := range q.Tables {
		if q.Tables[i].Table == name {
			return &q.Tables[i]
		}
	}
	return nil
}
