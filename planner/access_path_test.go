package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/catalog"
	cerrors "github.com/guileen/planlite/catalog/errors"
	"github.com/guileen/planlite/types"
)

func TestPlanTable_UnknownTable(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	_, err := p.PlanTable("runways", nil, nil)
	assert.ErrorIs(t, err, cerrors.ErrUnknownRelation)
}

func TestPlanTable_NoFilterFullScan(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	path, err := p.PlanTable("airports", nil, []string{"id", "name"})
	require.NoError(t, err)
	assert.Equal(t, FullScanPath, path.Type)
	assert.InDelta(t, 1_000_000, path.Rows, 1)
}

func TestPlanTable_EqualityUsesIndex(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.Equality{Expr: types.Column("iso_country"), Value: "US"}
	path, err := p.PlanTable("airports", filter, []string{"id", "name"})
	require.NoError(t, err)

	require.Equal(t, IndexScanPath, path.Type)
	// Three indexes match the same one-key prefix at the same cost; the
	// earliest declared one wins the tie.
	assert.Equal(t, "airports_country_idx", path.Index.Name)
	assert.Equal(t, 1, path.PrefixLen)
	assert.Empty(t, path.Residual)
}

func TestPlanTable_RangeWidthFlipsAccessPath(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	// A narrow band is worth random index probes.
	narrow := types.Range{Expr: types.Column("elevation_ft"), Low: 100.0, High: 110.0, IncLow: true, IncHigh: true}
	path, err := p.PlanTable("airports", narrow, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, IndexScanPath, path.Type)
	assert.Equal(t, "airports_elev_idx", path.Index.Name)

	// The full domain is not.
	wide := types.Range{Expr: types.Column("elevation_ft"), Low: 0.0, IncLow: true}
	path, err = p.PlanTable("airports", wide, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, FullScanPath, path.Type)
}

func TestPlanTable_CompoundIndexPrefix(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.And{Children: []types.Predicate{
		types.Equality{Expr: types.Column("iso_country"), Value: "US"},
		types.Range{Expr: types.Column("elevation_ft"), Low: 2500.0, High: 7500.0, IncLow: true, IncHigh: true},
	}}
	path, err := p.PlanTable("airports", filter, []string{"id"})
	require.NoError(t, err)

	require.Equal(t, IndexScanPath, path.Type)
	assert.Equal(t, "airports_country_elev_idx", path.Index.Name)
	assert.Equal(t, 2, path.PrefixLen)
	assert.Empty(t, path.Residual)
}

func TestPlanTable_FunctionDefeatsColumnIndex(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	// lower(iso_country) does not match the index on iso_country.
	filter := types.Equality{Expr: types.Func("lower", types.Column("iso_country")), Value: "us"}
	path, err := p.PlanTable("airports", filter, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, FullScanPath, path.Type)
}

func TestPlanTable_ExpressionIndex(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.Equality{Expr: types.Func("lower", types.Column("name")), Value: "quito"}
	path, err := p.PlanTable("airports", filter, []string{"id"})
	require.NoError(t, err)

	require.Equal(t, IndexScanPath, path.Type)
	assert.Equal(t, "airports_lower_name_idx", path.Index.Name)
}

func TestPlanTable_PartialIndexImplied(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.And{Children: []types.Predicate{
		types.Equality{Expr: types.Column("id"), Value: 42},
		types.Equality{Expr: types.Column("status"), Value: "Canceled"},
	}}
	path, err := p.PlanTable("airports", filter, []string{"id", "name"})
	require.NoError(t, err)

	require.Equal(t, IndexScanPath, path.Type)
	assert.Equal(t, "airports_canceled_idx", path.Index.Name)
	// The status conjunct is implied by the index predicate, not
	// re-checked.
	assert.Empty(t, path.Residual)
}

func TestPlanTable_PartialIndexNotImplied(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.And{Children: []types.Predicate{
		types.Equality{Expr: types.Column("id"), Value: 42},
		types.Equality{Expr: types.Column("status"), Value: "On schedule"},
	}}
	path, err := p.PlanTable("airports", filter, []string{"id", "name"})
	require.NoError(t, err)

	// No other index covers id, so the partial index being unusable means
	// a full scan.
	assert.Equal(t, FullScanPath, path.Type)
}

func TestPlanTable_CoveringIndexOnlyScan(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.Equality{Expr: types.Column("iso_country"), Value: "US"}
	path, err := p.PlanTable("airports", filter, []string{"name"})
	require.NoError(t, err)

	require.Equal(t, IndexOnlyScanPath, path.Type)
	assert.Equal(t, "airports_country_cover_idx", path.Index.Name)

	// The covering path must be strictly cheaper than the same scan
	// through a non-covering index.
	plain := p.indexPath(mustTable(t, p, "airports"), &types.IndexDefinition{
		Name: "plain", Keys: []string{"iso_country"},
	}, types.Conjuncts(filter), []string{"name"}, path.Rows)
	require.NotNil(t, plain)
	assert.Less(t, path.Cost.TotalCost, plain.Cost.TotalCost)
}

func TestPlanTable_ResidualFilterKept(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.And{Children: []types.Predicate{
		types.Equality{Expr: types.Column("iso_country"), Value: "US"},
		types.Equality{Expr: types.Column("status"), Value: "Delayed"},
	}}
	path, err := p.PlanTable("airports", filter, []string{"id"})
	require.NoError(t, err)

	require.NotEqual(t, FullScanPath, path.Type)
	require.Len(t, path.Residual, 1)
	assert.Equal(t, "status = Delayed", path.Residual[0].Key())
}

func TestPlanTable_Deterministic(t *testing.T) {
	p := New(airportsSnapshot(t), DefaultConfig())

	filter := types.Equality{Expr: types.Column("iso_country"), Value: "US"}
	first, err := p.PlanTable("airports", filter, []string{"id", "name"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := p.PlanTable("airports", filter, []string{"id", "name"})
		require.NoError(t, err)
		assert.Equal(t, first.Index.Name, again.Index.Name)
		assert.Equal(t, first.Cost, again.Cost)
	}
}

func mustTable(t *testing.T, p *Planner, name string) *types.TableDefinition {
	t.Helper()
	def, err := p.catalog.Table(name)
	require.NoError(t, err)
	return def
}

// Regression check: an index whose key expressions cannot be parsed is
// skipped rather than breaking planning.
func TestPlanTable_UnparseableIndexIgnored(t *testing.T) {
	doc := airportsDoc()
	doc.Tables[0].Indexes = []types.IndexDefinition{
		{Name: "broken", Keys: []string{"lower(name"}},
	}
	snap, err := catalog.NewSnapshot(doc)
	require.NoError(t, err)
	p := New(snap, DefaultConfig())

	path, err := p.PlanTable("airports", types.Equality{Expr: types.Column("iso_country"), Value: "US"}, nil)
	require.NoError(t, err)
	assert.Equal(t, FullScanPath, path.Type)
}
