package pgimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/types"
)

func TestParseIndexDef_PlainKeys(t *testing.T) {
	ix, ok := parseIndexDef("airports_country_idx",
		"CREATE INDEX airports_country_idx ON public.airports USING btree (iso_country, elevation_ft)")
	require.True(t, ok)
	assert.Equal(t, []string{"iso_country", "elevation_ft"}, ix.Keys)
	assert.False(t, ix.Unique)
	assert.Empty(t, ix.Include)
	assert.Empty(t, ix.Where)
}

func TestParseIndexDef_Unique(t *testing.T) {
	ix, ok := parseIndexDef("airports_pkey",
		"CREATE UNIQUE INDEX airports_pkey ON public.airports USING btree (id)")
	require.True(t, ok)
	assert.True(t, ix.Unique)
	assert.Equal(t, []string{"id"}, ix.Keys)
}

func TestParseIndexDef_Expression(t *testing.T) {
	ix, ok := parseIndexDef("airports_lower_name_idx",
		"CREATE INDEX airports_lower_name_idx ON public.airports USING btree (lower(name))")
	require.True(t, ok)
	assert.Equal(t, []string{"lower(name)"}, ix.Keys)
}

func TestParseIndexDef_Include(t *testing.T) {
	ix, ok := parseIndexDef("airports_cover_idx",
		"CREATE INDEX airports_cover_idx ON public.airports USING btree (iso_country) INCLUDE (name, municipality)")
	require.True(t, ok)
	assert.Equal(t, []string{"iso_country"}, ix.Keys)
	assert.Equal(t, []string{"name", "municipality"}, ix.Include)
}

func TestParseIndexDef_PartialWhere(t *testing.T) {
	ix, ok := parseIndexDef("airports_canceled_idx",
		"CREATE INDEX airports_canceled_idx ON public.airports USING btree (id) WHERE ((status)::text = 'Canceled'::text)")
	require.True(t, ok)
	require.Len(t, ix.Where, 1)
	assert.Equal(t, types.IndexPredicateTerm{Expr: "status", Op: "=", Value: "Canceled"}, ix.Where[0])
}

func TestParseIndexDef_UnsupportedWhere(t *testing.T) {
	_, ok := parseIndexDef("airports_high_idx",
		"CREATE INDEX airports_high_idx ON public.airports USING btree (id) WHERE (elevation_ft > 5000)")
	assert.False(t, ok)
}

func TestParseIndexDef_Malformed(t *testing.T) {
	_, ok := parseIndexDef("bad", "CREATE INDEX bad ON public.airports USING btree")
	assert.False(t, ok)
}

func TestMapTypeName(t *testing.T) {
	assert.Equal(t, types.ColumnTypeNumeric, mapTypeName("int8"))
	assert.Equal(t, types.ColumnTypeNumeric, mapTypeName("numeric"))
	assert.Equal(t, types.ColumnTypeText, mapTypeName("varchar"))
	assert.Equal(t, types.ColumnTypeTimestamp, mapTypeName("timestamptz"))
	assert.Equal(t, types.ColumnTypeBoolean, mapTypeName("bool"))
	assert.Equal(t, types.ColumnTypeEnum, mapTypeName("enum_status"))
	// Unknown types degrade to text.
	assert.Equal(t, types.ColumnTypeText, mapTypeName("jsonb"))
}
