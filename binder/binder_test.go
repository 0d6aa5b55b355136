package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/catalog"
	cerrors "github.com/guileen/planlite/catalog/errors"
	"github.com/guileen/planlite/types"
)

func testBinder(t *testing.T) *Binder {
	t.Helper()
	snap, err := catalog.NewSnapshot(&catalog.Document{
		Tables: []catalog.TableEntry{
			{
				TableDefinition: types.TableDefinition{
					Name:     "airports",
					RowCount: 1000,
					Columns: []types.ColumnDefinition{
						{Name: "id", Type: types.ColumnTypeNumeric},
						{Name: "iso_country", Type: types.ColumnTypeText},
						{Name: "elevation_ft", Type: types.ColumnTypeNumeric},
						{Name: "name", Type: types.ColumnTypeText},
					},
				},
			},
			{
				TableDefinition: types.TableDefinition{
					Name:     "countries",
					RowCount: 250,
					Columns: []types.ColumnDefinition{
						{Name: "code", Type: types.ColumnTypeText},
						{Name: "continent", Type: types.ColumnTypeText},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return New(snap)
}

func TestBind_SingleTable(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT name FROM airports WHERE iso_country = 'US' AND elevation_ft > 500")
	require.NoError(t, err)
	require.Len(t, q.Tables, 1)
	assert.Empty(t, q.Joins)

	qt := q.Table("airports")
	require.NotNil(t, qt)
	assert.Equal(t, []string{"name"}, qt.Output)

	conjuncts := types.Conjuncts(qt.Filter)
	require.Len(t, conjuncts, 2)

	eq, ok := conjuncts[0].(types.Equality)
	require.True(t, ok)
	assert.Equal(t, "iso_country", eq.Expr.Key())
	assert.Equal(t, "US", eq.Value)

	rng, ok := conjuncts[1].(types.Range)
	require.True(t, ok)
	assert.Equal(t, int64(500), rng.Low)
	assert.False(t, rng.IncLow)
	assert.Nil(t, rng.High)
}

func TestBind_Join(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind(`SELECT a.name FROM airports a
		JOIN countries c ON a.iso_country = c.code
		WHERE c.continent = 'EU'`)
	require.NoError(t, err)
	require.Len(t, q.Tables, 2)

	require.Len(t, q.Joins, 1)
	jp := q.Joins[0]
	assert.Equal(t, "airports", jp.LeftTable)
	assert.Equal(t, "iso_country", jp.LeftColumn)
	assert.Equal(t, "countries", jp.RightTable)
	assert.Equal(t, "code", jp.RightColumn)

	// The continent filter lands on countries, not on the join graph.
	ct := q.Table("countries")
	require.NotNil(t, ct)
	require.NotNil(t, ct.Filter)
	assert.Equal(t, "continent = EU", ct.Filter.Key())
	assert.Nil(t, q.Table("airports").Filter)
}

func TestBind_ImplicitJoinInWhere(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT a.name FROM airports a, countries c WHERE a.iso_country = c.code")
	require.NoError(t, err)
	require.Len(t, q.Tables, 2)
	require.Len(t, q.Joins, 1)
	assert.Nil(t, q.Table("airports").Filter)
	assert.Nil(t, q.Table("countries").Filter)
}

func TestBind_LikeAndBetween(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT id FROM airports WHERE name LIKE 'Q%' AND elevation_ft BETWEEN 100 AND 500")
	require.NoError(t, err)

	conjuncts := types.Conjuncts(q.Table("airports").Filter)
	require.Len(t, conjuncts, 2)

	like, ok := conjuncts[0].(types.Like)
	require.True(t, ok)
	assert.Equal(t, "Q%", like.Pattern)

	rng, ok := conjuncts[1].(types.Range)
	require.True(t, ok)
	assert.Equal(t, int64(100), rng.Low)
	assert.Equal(t, int64(500), rng.High)
	assert.True(t, rng.IncLow)
	assert.True(t, rng.IncHigh)
}

func TestBind_OrAndNullTest(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT id FROM airports WHERE (iso_country = 'US' OR iso_country = 'CA') AND elevation_ft IS NOT NULL")
	require.NoError(t, err)

	conjuncts := types.Conjuncts(q.Table("airports").Filter)
	require.Len(t, conjuncts, 2)

	or, ok := conjuncts[0].(types.Or)
	require.True(t, ok)
	assert.Len(t, or.Children, 2)

	nt, ok := conjuncts[1].(types.NullTest)
	require.True(t, ok)
	assert.True(t, nt.Negated)
}

func TestBind_FunctionExpression(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT id FROM airports WHERE lower(name) = 'quito'")
	require.NoError(t, err)

	eq, ok := q.Table("airports").Filter.(types.Equality)
	require.True(t, ok)
	assert.Equal(t, "lower(name)", eq.Expr.Key())
	assert.Equal(t, "quito", eq.Value)
}

func TestBind_Star(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT * FROM countries")
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "continent"}, q.Table("countries").Output)
}

func TestBind_QualifiedStar(t *testing.T) {
	b := testBinder(t)

	q, err := b.Bind("SELECT c.* FROM airports a JOIN countries c ON a.iso_country = c.code")
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "continent"}, q.Table("countries").Output)
	assert.Empty(t, q.Table("airports").Output)
}

func TestBind_AmbiguousColumn(t *testing.T) {
	b := testBinder(t)

	// Unqualified references resolve only when exactly one table has the
	// column; iso_country exists on airports only, so this works.
	_, err := b.Bind("SELECT iso_country FROM airports a, countries c WHERE a.iso_country = c.code")
	require.NoError(t, err)
}

func TestBind_Errors(t *testing.T) {
	b := testBinder(t)

	_, err := b.Bind("SELECT * FROM runways")
	assert.ErrorIs(t, err, cerrors.ErrUnknownRelation)

	_, err = b.Bind("SELECT altitude FROM airports")
	assert.ErrorIs(t, err, cerrors.ErrColumnNotFound)

	_, err = b.Bind("SELECT x.name FROM airports a")
	assert.ErrorIs(t, err, cerrors.ErrUnknownRelation)

	_, err = b.Bind("not even sql")
	assert.Error(t, err)

	_, err = b.Bind("INSERT INTO airports (id) VALUES (1)")
	assert.Error(t, err)

	_, err = b.Bind("SELECT 1")
	assert.Error(t, err)

	_, err = b.Bind("SELECT id FROM airports UNION SELECT id FROM airports")
	assert.Error(t, err)

	_, err = b.Bind("SELECT a.id FROM airports a, airports a WHERE a.id = 1")
	assert.Error(t, err)
}
