package planner

import (
	"math"
)

// CostModel represents the cost model for query optimization. The
// constants are tunables, not contracts: tests assert relative orderings,
// never absolute values.
type CostModel struct {
	seqPageCost       float64 // Cost of sequential page access
	randomPageCost    float64 // Cost of random page access
	cpuTupleCost      float64 // Cost of processing a tuple
	cpuIndexTupleCost float64 // Cost of processing an index tuple
	cpuOperatorCost   float64 // Cost of processing an operator
	indexOnlyFactor   float64 // Discount on heap fetches avoided by index-only scans
	rowsPerPage       float64 // Heuristic tuples-per-page density
}

// PlanCost represents the cost of a query plan
type PlanCost struct {
	StartupCost float64 // Cost to start the plan
	TotalCost   float64 // Total cost of the plan
	Rows        float64 // Estimated number of rows
}

// NewCostModel creates a new cost model with default parameters
func NewCostModel() *CostModel {
	return &CostModel{
		seqPageCost:       1.0,
		randomPageCost:    4.0,
		cpuTupleCost:      0.01,
		cpuIndexTupleCost: 0.005,
		cpuOperatorCost:   0.0025,
		indexOnlyFactor:   0.1,
		rowsPerPage:       64,
	}
}

// SeqScanCost calculates the cost of a full sequential scan over a table
// with the given tuple count. outRows is the estimated number of rows
// surviving the filter.
func (cm *CostModel) SeqScanCost(tuples, outRows float64) PlanCost {
	pages := math.Ceil(tuples / cm.rowsPerPage)
	totalCost := pages*cm.seqPageCost + tuples*cm.cpuTupleCost

	return PlanCost{
		StartupCost: 0,
		TotalCost:   totalCost,
		Rows:        outRows,
	}
}

// IndexScanCost calculates the cost of an index scan. matchedTuples is
// the estimate for rows matched by the index prefix predicate (these all
// incur index tuple processing and, unless the scan is index-only, a
// random heap fetch). outRows is the estimate after residual filtering.
func (cm *CostModel) IndexScanCost(tableTuples, matchedTuples, outRows float64, indexOnly bool) PlanCost {
	startupCost := log2(tableTuples) * cm.randomPageCost
	heapCost := matchedTuples * cm.randomPageCost
	if indexOnly {
		heapCost *= cm.indexOnlyFactor
	}
	totalCost := startupCost + matchedTuples*cm.cpuIndexTupleCost + heapCost

	return PlanCost{
		StartupCost: startupCost,
		TotalCost:   totalCost,
		Rows:        outRows,
	}
}

// NestedLoopJoinCost calculates the cost of a nested loop join
func (cm *CostModel) NestedLoopJoinCost(leftCost, rightCost PlanCost, joinSelectivity float64) PlanCost {
	startupCost := leftCost.StartupCost + rightCost.StartupCost
	totalCost := leftCost.TotalCost + leftCost.Rows*rightCost.TotalCost

	estimatedRows := leftCost.Rows * rightCost.Rows * joinSelectivity

	return PlanCost{
		StartupCost: startupCost,
		TotalCost:   totalCost,
		Rows:        estimatedRows,
	}
}

// HashJoinCost calculates the cost of a hash join. The right side is the
// build input.
func (cm *CostModel) HashJoinCost(leftCost, rightCost PlanCost, joinSelectivity float64) PlanCost {
	buildCost := rightCost.TotalCost + rightCost.Rows*cm.cpuOperatorCost
	probeCost := leftCost.TotalCost + leftCost.Rows*cm.cpuOperatorCost

	estimatedRows := leftCost.Rows * rightCost.Rows * joinSelectivity

	return PlanCost{
		StartupCost: buildCost,
		TotalCost:   buildCost + probeCost,
		Rows:        estimatedRows,
	}
}

// MergeJoinCost calculates the cost of a merge join, including sorting
// both inputs.
func (cm *CostModel) MergeJoinCost(leftCost, rightCost PlanCost, joinSelectivity float64) PlanCost {
	sortCost := cm.sortCost(leftCost) + cm.sortCost(rightCost)
	startupCost := leftCost.TotalCost + rightCost.TotalCost + sortCost
	totalCost := startupCost + (leftCost.Rows+rightCost.Rows)*cm.cpuOperatorCost

	estimatedRows := leftCost.Rows * rightCost.Rows * joinSelectivity

	return PlanCost{
		StartupCost: startupCost,
		TotalCost:   totalCost,
		Rows:        estimatedRows,
	}
}

// sortCost is the n*log(n) operator cost of sorting an input.
func (cm *CostModel) sortCost(input PlanCost) float64 {
	return input.Rows * log2(input.Rows) * cm.cpuOperatorCost
}

// log2 calculates the base-2 logarithm, treating non-positive input as 0
func log2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log2(x)
}
