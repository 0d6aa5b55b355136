package planner

import (
	"github.com/guileen/planlite/types"
)

// PathType identifies the physical access method chosen for a table.
type PathType int

const (
	FullScanPath PathType = iota
	IndexScanPath
	IndexOnlyScanPath
)

// String returns the explain-output name of the path type.
func (t PathType) String() string {
	switch t {
	case IndexScanPath:
		return "Index Scan"
	case IndexOnlyScanPath:
		return "Index Only Scan"
	default:
		return "Seq Scan"
	}
}

// AccessPath is one candidate way of reading a single table. Rows is the
// estimate after the full filter has been applied; matchedRows (internal)
// is the estimate for the index prefix predicate alone and drives cost
// and tie-breaking.
type AccessPath struct {
	Table      string
	Type       PathType
	Index      *types.IndexDefinition // nil for a full scan
	PrefixLen  int                    // matched key-expression prefix length
	IndexConds []types.Predicate      // conjuncts satisfied by the index prefix
	Residual   []types.Predicate      // conjuncts re-checked on fetched rows
	Rows       float64
	Cost       PlanCost

	matchedRows float64
}

// PlanTable enumerates candidate access paths for a single-table scan and
// returns the cheapest one. It never fails on missing statistics or
// unusable indexes; the worst case is a conservative full scan. An
// unknown table is the one fatal case.
func (p *Planner) PlanTable(table string, filter types.Predicate, output []string) (*AccessPath, error) {
	def, err := p.catalog.Table(table)
	if err != nil {
		return nil, err
	}

	tuples := float64(def.RowCount)
	conjuncts := types.Conjuncts(filter)
	outRows := tuples * p.estimator.Estimate(table, types.AndOf(conjuncts))

	best := &AccessPath{
		Table:       table,
		Type:        FullScanPath,
		Residual:    conjuncts,
		Rows:        outRows,
		Cost:        p.cost.SeqScanCost(tuples, outRows),
		matchedRows: tuples,
	}

	indexes := p.catalog.IndexesOn(table)
	for i := range indexes {
		candidate := p.indexPath(def, &indexes[i], conjuncts, output, outRows)
		if candidate != nil && cheaperPath(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// indexPath builds the access path for one index, or nil when the index
// cannot serve the predicate.
func (p *Planner) indexPath(def *types.TableDefinition, ix *types.IndexDefinition, conjuncts []types.Predicate, output []string, outRows float64) *AccessPath {
	keys := ix.KeyExprs()
	if keys == nil {
		return nil
	}

	partial, representable := ix.WherePredicate()
	if !representable {
		return nil
	}
	impliedKeys := map[string]bool{}
	if len(partial) > 0 {
		// A partial index is usable only when every conjunct of its
		// predicate appears, syntactically equal after normalization,
		// among the query's conjuncts.
		queryKeys := make(map[string]bool, len(conjuncts))
		for _, c := range conjuncts {
			queryKeys[c.Key()] = true
		}
		for _, term := range partial {
			if !queryKeys[term.Key()] {
				return nil
			}
			impliedKeys[term.Key()] = true
		}
	}

	matched, prefixLen := matchPrefix(keys, conjuncts)
	if prefixLen == 0 && len(partial) == 0 {
		return nil
	}

	// Rows the index scan must examine: the matched prefix predicate plus
	// whatever the partial predicate already filtered out.
	indexPred := append(append([]types.Predicate{}, matched...), partial...)
	matchedRows := float64(def.RowCount) * p.estimator.Estimate(def.Name, types.AndOf(indexPred))

	residual := residualConjuncts(conjuncts, matched, impliedKeys)

	indexOnly := coversQuery(keys, ix.Include, residual, output)
	pathType := IndexScanPath
	if indexOnly {
		pathType = IndexOnlyScanPath
	}

	return &AccessPath{
		Table:       def.Name,
		Type:        pathType,
		Index:       ix,
		PrefixLen:   prefixLen,
		IndexConds:  matched,
		Residual:    residual,
		Rows:        outRows,
		Cost:        p.cost.IndexScanCost(float64(def.RowCount), matchedRows, outRows, indexOnly),
		matchedRows: matchedRows,
	}
}

// matchPrefix finds the longest prefix of the index key expressions that
// the conjuncts constrain. An equality term extends the prefix and allows
// matching the next position; a range or LIKE-prefix term matches its
// position but terminates the extension.
func matchPrefix(keys []types.Expr, conjuncts []types.Predicate) ([]types.Predicate, int) {
	var matched []types.Predicate
	used := make([]bool, len(conjuncts))

	for _, key := range keys {
		if !types.Deterministic(key) {
			break
		}
		keyName := key.Key()

		// Equality first: it keeps the prefix extensible.
		ci := findConjunct(conjuncts, used, keyName, true)
		if ci >= 0 {
			used[ci] = true
			matched = append(matched, conjuncts[ci])
			continue
		}
		ci = findConjunct(conjuncts, used, keyName, false)
		if ci >= 0 {
			used[ci] = true
			matched = append(matched, conjuncts[ci])
		}
		break
	}
	return matched, len(matched)
}

// findConjunct locates an unused conjunct constraining the key
// expression. equalityOnly selects between the prefix-extending and
// prefix-terminating kinds.
func findConjunct(conjuncts []types.Predicate, used []bool, keyName string, equalityOnly bool) int {
	for i, c := range conjuncts {
		if used[i] {
			continue
		}
		switch pred := c.(type) {
		case types.Equality:
			if equalityOnly && types.Deterministic(pred.Expr) && pred.Expr.Key() == keyName {
				return i
			}
		case types.Range:
			if !equalityOnly && types.Deterministic(pred.Expr) && pred.Expr.Key() == keyName {
				return i
			}
		case types.Like:
			if equalityOnly || !types.Deterministic(pred.Expr) || pred.Expr.Key() != keyName {
				continue
			}
			if _, ok := types.LikePrefix(pred.Pattern); ok {
				return i
			}
		}
	}
	return -1
}

// residualConjuncts returns the conjuncts not satisfied by the index
// prefix and not already guaranteed by the partial predicate.
func residualConjuncts(conjuncts, matched []types.Predicate, impliedKeys map[string]bool) []types.Predicate {
	matchedSet := make(map[string]bool, len(matched))
	for _, m := range matched {
		matchedSet[m.Key()] = true
	}
	var residual []types.Predicate
	for _, c := range conjuncts {
		key := c.Key()
		if matchedSet[key] || impliedKeys[key] {
			continue
		}
		residual = append(residual, c)
	}
	return residual
}

// coversQuery reports whether every column the query touches (residual
// filter plus output) is available from the index's key and INCLUDE
// columns, making an index-only scan possible.
func coversQuery(keys []types.Expr, include []string, residual []types.Predicate, output []string) bool {
	covered := make(map[string]bool)
	for _, key := range keys {
		if col, ok := key.(types.ColumnRef); ok {
			covered[col.Column] = true
		}
	}
	for _, col := range include {
		covered[col] = true
	}

	var required []string
	for _, r := range residual {
		required = r.Columns(required)
	}
	required = append(required, output...)

	for _, col := range required {
		if !covered[col] {
			return false
		}
	}
	return true
}

// cheaperPath orders candidate paths deterministically: lower total cost
// first; on ties index-only scans win, then the path expected to examine
// fewer rows. Candidates are visited in index declaration order, so a
// full tie keeps the earlier index.
func cheaperPath(candidate, best *AccessPath) bool {
	if candidate.Cost.TotalCost != best.Cost.TotalCost {
		return candidate.Cost.TotalCost < best.Cost.TotalCost
	}
	candIndexOnly := candidate.Type == IndexOnlyScanPath
	bestIndexOnly := best.Type == IndexOnlyScanPath
	if candIndexOnly != bestIndexOnly {
		return candIndexOnly
	}
	return candidate.matchedRows < best.matchedRows
}
