package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guileen/planlite/types"
)

func TestExplain_FullScanLeaf(t *testing.T) {
	leaf := scanLeaf(&AccessPath{
		Table: "airports",
		Type:  FullScanPath,
		Residual: []types.Predicate{
			types.Equality{Expr: types.Column("status"), Value: "Canceled"},
		},
		Rows: 42,
		Cost: PlanCost{StartupCost: 0, TotalCost: 100, Rows: 42},
	})

	out := Explain(leaf)
	assert.Equal(t,
		"Seq Scan on airports  (rows=42 cost=0.00..100.00)\n"+
			"  Filter: status = Canceled\n",
		out)
}

func TestExplain_IndexScanLeaf(t *testing.T) {
	leaf := scanLeaf(&AccessPath{
		Table:     "airports",
		Type:      IndexScanPath,
		Index:     &types.IndexDefinition{Name: "airports_country_idx"},
		PrefixLen: 1,
		Rows:      4000,
		Cost:      PlanCost{StartupCost: 79.73, TotalCost: 16100.5, Rows: 4000},
	})

	out := Explain(leaf)
	assert.Equal(t,
		"Index Scan using airports_country_idx on airports (prefix=1)  (rows=4000 cost=79.73..16100.50)\n",
		out)
}

func TestExplain_JoinTree(t *testing.T) {
	left := scanLeaf(&AccessPath{
		Table: "account",
		Type:  FullScanPath,
		Rows:  200,
		Cost:  PlanCost{TotalCost: 257, Rows: 200},
	})
	right := scanLeaf(&AccessPath{
		Table: "passenger",
		Type:  FullScanPath,
		Rows:  1000,
		Cost:  PlanCost{TotalCost: 1100, Rows: 1000},
	})
	join := joinNode(HashJoin, left, right,
		[]types.JoinPredicate{{
			LeftTable: "passenger", LeftColumn: "account_id",
			RightTable: "account", RightColumn: "id",
		}},
		PlanCost{StartupCost: 1100, TotalCost: 1360, Rows: 20},
	)

	out := Explain(join)
	assert.Equal(t,
		"Hash Join on passenger.account_id = account.id  (rows=20 cost=1100.00..1360.00)\n"+
			"  Seq Scan on account  (rows=200 cost=0.00..257.00)\n"+
			"  Seq Scan on passenger  (rows=1000 cost=0.00..1100.00)\n",
		out)
}

func TestExplain_CrossJoin(t *testing.T) {
	left := scanLeaf(&AccessPath{Table: "a", Type: FullScanPath, Rows: 2, Cost: PlanCost{TotalCost: 1, Rows: 2}})
	right := scanLeaf(&AccessPath{Table: "b", Type: FullScanPath, Rows: 3, Cost: PlanCost{TotalCost: 1, Rows: 3}})
	join := joinNode(NestedLoopJoin, left, right, nil, PlanCost{TotalCost: 3, Rows: 6})

	out := Explain(join)
	assert.Contains(t, out, "Nested Loop  (rows=6 cost=0.00..3.00)\n")
	assert.NotContains(t, out, "Nested Loop on")
}
