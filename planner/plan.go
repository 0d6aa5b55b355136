package planner

import (
	"github.com/guileen/planlite/types"
)

// JoinStrategy represents the join algorithm chosen for a join node.
type JoinStrategy int

const (
	NestedLoopJoin JoinStrategy = iota
	HashJoin
	MergeJoin
)

// String returns the explain-output name of the strategy.
func (s JoinStrategy) String() string {
	switch s {
	case HashJoin:
		return "Hash Join"
	case MergeJoin:
		return "Merge Join"
	default:
		return "Nested Loop"
	}
}

// PlanNode is one node of the chosen plan tree. A node is either a scan
// leaf (Scan set, children nil) or a join (Left and Right set). Nodes are
// built once and never mutated, so plans can be compared structurally and
// shared across goroutines.
type PlanNode struct {
	Scan     *AccessPath
	Left     *PlanNode
	Right    *PlanNode
	Strategy JoinStrategy
	Conds    []types.JoinPredicate
	Cost     PlanCost
}

// IsLeaf reports whether the node is a single-table scan.
func (n *PlanNode) IsLeaf() bool {
	return n.Scan != nil
}

// Tables appends the names of all tables scanned under this node.
func (n *PlanNode) Tables(dst []string) []string {
	if n.IsLeaf() {
		return append(dst, n.Scan.Table)
	}
	dst = n.Left.Tables(dst)
	return n.Right.Tables(dst)
}

func scanLeaf(path *AccessPath) *PlanNode {
	return &PlanNode{Scan: path, Cost: path.Cost}
}

func joinNode(strategy JoinStrategy, left, right *PlanNode, conds []types.JoinPredicate, cost PlanCost) *PlanNode {
	return &PlanNode{
		Strategy: strategy,
		Left:     left,
		Right:    right,
		Conds:    conds,
		Cost:     cost,
	}
}
