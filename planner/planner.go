// Package planner implements a cost-based query planner: selectivity
// estimation from catalog statistics, access path selection between
// sequential, index, and index-only scans, and Selinger-style join order
// search. Planning is a pure computation over an immutable catalog
// snapshot; any number of planning calls may run concurrently against the
// same snapshot.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/types"
)

// Config holds the planner tunables.
type Config struct {
	// DefaultSelectivity is used whenever statistics cannot support a
	// better estimate (missing stats, opaque expressions, patternless
	// LIKE).
	DefaultSelectivity float64

	// MaxDPTables bounds the exhaustive join-order search; queries
	// joining more tables fall back to the greedy heuristic.
	MaxDPTables int

	// PlanBudget bounds the wall-clock time of the join-order search.
	// When exceeded mid-search the planner falls back to the greedy
	// heuristic instead of failing.
	PlanBudget time.Duration
}

// DefaultConfig returns the default planner configuration.
func DefaultConfig() Config {
	return Config{
		DefaultSelectivity: 0.25,
		MaxDPTables:        12,
		PlanBudget:         100 * time.Millisecond,
	}
}

// Planner plans queries against one catalog snapshot. Create a new
// Planner after a statistics refresh; in-flight planning calls keep the
// snapshot they started with.
type Planner struct {
	catalog   catalog.Catalog
	cost      *CostModel
	estimator *Estimator
	config    Config
}

// New creates a planner over a catalog snapshot.
func New(cat catalog.Catalog, config Config) *Planner {
	return &Planner{
		catalog:   cat,
		cost:      NewCostModel(),
		estimator: NewEstimator(cat, config.DefaultSelectivity),
		config:    config,
	}
}

// Plan produces the minimum-estimated-cost plan tree for a bound query.
// Planning never fails for degraded statistics, unusable indexes, or a
// disconnected join graph; the only errors are structural ones such as an
// unknown relation.
func (p *Planner) Plan(ctx context.Context, q *types.Query) (*PlanNode, error) {
	if len(q.Tables) == 0 {
		return nil, fmt.Errorf("query references no tables")
	}

	leaves := make([]*PlanNode, len(q.Tables))
	for i, qt := range q.Tables {
		path, err := p.PlanTable(qt.Table, qt.Filter, qt.Output)
		if err != nil {
			return nil, err
		}
		leaves[i] = scanLeaf(path)
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}

	edges, err := p.joinEdges(q)
	if err != nil {
		return nil, err
	}
	return p.planJoinOrder(ctx, q, leaves, edges)
}

// Estimate exposes the selectivity estimator, mainly for test harnesses
// and explain tooling.
func (p *Planner) Estimate(table string, pred types.Predicate) float64 {
	return p.estimator.Estimate(table, pred)
}
