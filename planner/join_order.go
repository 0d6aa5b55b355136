package planner

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/types"
)

// joinEdge is one equi-join condition annotated with the bitmask of the
// two tables it connects.
type joinEdge struct {
	pred types.JoinPredicate
	mask uint64
}

// joinEdges resolves the query's join predicates against its table list.
func (p *Planner) joinEdges(q *types.Query) ([]joinEdge, error) {
	position := make(map[string]int, len(q.Tables))
	for i, qt := range q.Tables {
		position[qt.Table] = i
	}

	edges := make([]joinEdge, 0, len(q.Joins))
	for _, jp := range q.Joins {
		l, lok := position[jp.LeftTable]
		r, rok := position[jp.RightTable]
		if !lok || !rok {
			return nil, fmt.Errorf("join predicate references table not in query: %s = %s",
				jp.LeftTable+"."+jp.LeftColumn, jp.RightTable+"."+jp.RightColumn)
		}
		if l == r {
			return nil, fmt.Errorf("join predicate joins table %s to itself", jp.LeftTable)
		}
		edges = append(edges, joinEdge{pred: jp, mask: 1<<uint(l) | 1<<uint(r)})
	}
	return edges, nil
}

// planJoinOrder searches join orders bottom-up over table subsets
// (Selinger style) and returns the cheapest tree. Beyond MaxDPTables, or
// once the planning budget is exhausted, it degrades to the greedy
// heuristic; a disconnected join graph degrades to cross joins. Neither
// is an error.
func (p *Planner) planJoinOrder(ctx context.Context, q *types.Query, leaves []*PlanNode, edges []joinEdge) (*PlanNode, error) {
	n := len(leaves)
	if n > p.config.MaxDPTables {
		logger.WarnContext(ctx, "join search space too large, using greedy join ordering",
			"tables", n, "max_dp_tables", p.config.MaxDPTables)
		return p.greedyJoin(ctx, leaves, edges), nil
	}

	deadline := time.Now().Add(p.config.PlanBudget)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	best := make([]*PlanNode, 1<<uint(n))
	for i, leaf := range leaves {
		best[1<<uint(i)] = leaf
	}

	crossJoined := false
	// Subset masks are numerically larger than their proper submasks, so
	// ascending mask order is increasing-size order where it matters.
	for s := uint64(3); s < 1<<uint(n); s++ {
		if bits.OnesCount64(s) < 2 {
			continue
		}
		if time.Now().After(deadline) {
			logger.WarnContext(ctx, "join order search exceeded planning budget, falling back to greedy ordering",
				"tables", n, "budget", p.config.PlanBudget)
			return p.greedyJoin(ctx, leaves, edges), nil
		}

		var bestPlan *PlanNode
		for pass := 0; pass < 2 && bestPlan == nil; pass++ {
			allowCross := pass == 1
			for s1 := (s - 1) & s; s1 > 0; s1 = (s1 - 1) & s {
				s2 := s ^ s1
				left, right := best[s1], best[s2]
				if left == nil || right == nil {
					continue
				}
				conds := spanningConds(edges, s1, s2)
				if len(conds) == 0 {
					if !allowCross {
						continue
					}
					crossJoined = true
				}
				cand := p.bestJoin(left, right, conds)
				if bestPlan == nil || cand.Cost.TotalCost < bestPlan.Cost.TotalCost {
					bestPlan = cand
				}
			}
		}
		best[s] = bestPlan
	}

	if crossJoined {
		logger.WarnContext(ctx, "join graph is disconnected, plan contains cross joins")
	}
	return best[(1<<uint(n))-1], nil
}

// greedyJoin repeatedly joins the pair of subplans producing the smallest
// estimated output, preferring connected pairs over cross joins. This
// keeps planning polynomial when the DP is too expensive; it is an
// approximation and may miss the optimal order.
func (p *Planner) greedyJoin(ctx context.Context, leaves []*PlanNode, edges []joinEdge) *PlanNode {
	type rel struct {
		mask uint64
		plan *PlanNode
	}
	rels := make([]rel, len(leaves))
	for i, leaf := range leaves {
		rels[i] = rel{mask: 1 << uint(i), plan: leaf}
	}

	crossJoined := false
	for len(rels) > 1 {
		bestI, bestJ := -1, -1
		var bestPlan *PlanNode

		for pass := 0; pass < 2 && bestPlan == nil; pass++ {
			allowCross := pass == 1
			for i := 0; i < len(rels); i++ {
				for j := i + 1; j < len(rels); j++ {
					conds := spanningConds(edges, rels[i].mask, rels[j].mask)
					if len(conds) == 0 && !allowCross {
						continue
					}
					cand := p.bestJoin(rels[i].plan, rels[j].plan, conds)
					if flipped := p.bestJoin(rels[j].plan, rels[i].plan, conds); flipped.Cost.TotalCost < cand.Cost.TotalCost {
						cand = flipped
					}
					if bestPlan == nil || cand.Cost.Rows < bestPlan.Cost.Rows ||
						(cand.Cost.Rows == bestPlan.Cost.Rows && cand.Cost.TotalCost < bestPlan.Cost.TotalCost) {
						bestPlan = cand
						bestI, bestJ = i, j
					}
				}
			}
			if bestPlan != nil && allowCross {
				crossJoined = true
			}
		}

		merged := rel{mask: rels[bestI].mask | rels[bestJ].mask, plan: bestPlan}
		rels = append(rels[:bestJ], rels[bestJ+1:]...)
		rels[bestI] = merged
	}

	if crossJoined {
		logger.WarnContext(ctx, "join graph is disconnected, plan contains cross joins")
	}
	return rels[0].plan
}

// bestJoin picks the cheapest join strategy for a fixed pair of inputs.
// Hash and merge joins require an equality condition; a nested loop is
// always available and doubles as the cross join.
func (p *Planner) bestJoin(left, right *PlanNode, conds []types.JoinPredicate) *PlanNode {
	sel := p.joinSelectivity(left, right, conds)

	best := joinNode(NestedLoopJoin, left, right, conds,
		p.cost.NestedLoopJoinCost(left.Cost, right.Cost, sel))
	if len(conds) == 0 {
		return best
	}

	if hash := p.cost.HashJoinCost(left.Cost, right.Cost, sel); hash.TotalCost < best.Cost.TotalCost {
		best = joinNode(HashJoin, left, right, conds, hash)
	}
	if merge := p.cost.MergeJoinCost(left.Cost, right.Cost, sel); merge.TotalCost < best.Cost.TotalCost {
		best = joinNode(MergeJoin, left, right, conds, merge)
	}
	return best
}

// joinSelectivity estimates the fraction of the cross product surviving
// the join conditions. Equi-joins use 1/max of the two distinct counts;
// without statistics the standard independence fallback is
// 1/max(leftRows, rightRows). No conditions means a cross join.
func (p *Planner) joinSelectivity(left, right *PlanNode, conds []types.JoinPredicate) float64 {
	if len(conds) == 0 {
		return 1.0
	}

	sel := 1.0
	for _, cond := range conds {
		nd := p.joinKeyDistinct(cond)
		if nd <= 0 {
			larger := left.Cost.Rows
			if right.Cost.Rows > larger {
				larger = right.Cost.Rows
			}
			if larger < 1 {
				larger = 1
			}
			nd = larger
		}
		sel *= 1.0 / nd
	}
	return clamp01(sel)
}

// joinKeyDistinct returns the larger distinct-count of the two join key
// columns, or 0 when neither side has statistics.
func (p *Planner) joinKeyDistinct(cond types.JoinPredicate) float64 {
	var nd float64
	if st, ok := p.catalog.StatsFor(cond.LeftTable, types.Column(cond.LeftColumn)); ok && st.NDistinct > 0 {
		nd = float64(st.NDistinct)
	}
	if st, ok := p.catalog.StatsFor(cond.RightTable, types.Column(cond.RightColumn)); ok && st.NDistinct > 0 {
		if float64(st.NDistinct) > nd {
			nd = float64(st.NDistinct)
		}
	}
	return nd
}

// spanningConds returns the join conditions with one endpoint in each
// side of a split.
func spanningConds(edges []joinEdge, s1, s2 uint64) []types.JoinPredicate {
	var conds []types.JoinPredicate
	for _, e := range edges {
		if e.mask&s1 != 0 && e.mask&s2 != 0 {
			conds = append(conds, e.pred)
		}
	}
	return conds
}
