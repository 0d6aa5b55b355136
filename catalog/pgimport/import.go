// Package pgimport builds catalog documents from a live PostgreSQL
// database, reading pg_class, pg_stats, and pg_indexes. It is the
// production path for populating the planner's catalog; tests and the CLI
// use JSON documents instead.
package pgimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/types"
)

// Importer reads planner statistics from a PostgreSQL connection.
type Importer struct {
	conn   *pgx.Conn
	schema string
}

// Connect opens a connection and returns an importer for the public
// schema.
func Connect(ctx context.Context, connString string) (*Importer, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Importer{conn: conn, schema: "public"}, nil
}

// Close closes the underlying connection.
func (im *Importer) Close(ctx context.Context) error {
	return im.conn.Close(ctx)
}

// ImportDocument reads table definitions, statistics, and index metadata
// for every ordinary table in the schema.
func (im *Importer) ImportDocument(ctx context.Context) (*catalog.Document, error) {
	tables, err := im.readTables(ctx)
	if err != nil {
		return nil, err
	}

	doc := &catalog.Document{}
	for name, rowCount := range tables {
		entry := catalog.TableEntry{}
		entry.Name = name
		entry.RowCount = rowCount

		if entry.Columns, err = im.readColumns(ctx, name); err != nil {
			return nil, err
		}
		if entry.Statistics, err = im.readStatistics(ctx, name, rowCount); err != nil {
			return nil, err
		}
		if entry.Indexes, err = im.readIndexes(ctx, name); err != nil {
			return nil, err
		}
		doc.Tables = append(doc.Tables, entry)
	}
	return doc, nil
}

func (im *Importer) readTables(ctx context.Context) (map[string]int64, error) {
	rows, err := im.conn.Query(ctx, `
		SELECT c.relname, GREATEST(c.reltuples, 0)::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r' AND n.nspname = $1`, im.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read pg_class: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]int64)
	for rows.Next() {
		var name string
		var rowCount int64
		if err := rows.Scan(&name, &rowCount); err != nil {
			return nil, fmt.Errorf("failed to scan pg_class row: %w", err)
		}
		tables[name] = rowCount
	}
	return tables, rows.Err()
}

func (im *Importer) readColumns(ctx context.Context, table string) ([]types.ColumnDefinition, error) {
	rows, err := im.conn.Query(ctx, `
		SELECT a.attname, t.typname, NOT a.attnotnull
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_type t ON t.oid = a.atttypid
		WHERE n.nspname = $1 AND c.relname = $2
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, im.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read pg_attribute: %w", err)
	}
	defer rows.Close()

	var cols []types.ColumnDefinition
	for rows.Next() {
		var name, typname string
		var nullable bool
		if err := rows.Scan(&name, &typname, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan pg_attribute row: %w", err)
		}
		cols = append(cols, types.ColumnDefinition{
			Name:     name,
			Type:     mapTypeName(typname),
			Nullable: nullable,
		})
	}
	return cols, rows.Err()
}

func (im *Importer) readStatistics(ctx context.Context, table string, rowCount int64) ([]catalog.ColumnStatistics, error) {
	rows, err := im.conn.Query(ctx, `
		SELECT attname, n_distinct, null_frac,
		       most_common_vals::text::text[], most_common_freqs
		FROM pg_stats
		WHERE schemaname = $1 AND tablename = $2`, im.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read pg_stats: %w", err)
	}
	defer rows.Close()

	var stats []catalog.ColumnStatistics
	for rows.Next() {
		var attname string
		var nDistinct float64
		var nullFrac float64
		var mcvs []string
		var freqs []float64
		if err := rows.Scan(&attname, &nDistinct, &nullFrac, &mcvs, &freqs); err != nil {
			return nil, fmt.Errorf("failed to scan pg_stats row: %w", err)
		}
		// Negative n_distinct means a fraction of the row count.
		if nDistinct < 0 {
			nDistinct = -nDistinct * float64(rowCount)
		}
		st := catalog.ColumnStatistics{
			Expr:      attname,
			NDistinct: int64(nDistinct),
			NullFrac:  nullFrac,
		}
		for _, v := range mcvs {
			st.MostCommonVals = append(st.MostCommonVals, v)
		}
		st.MostCommonFreqs = freqs
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (im *Importer) readIndexes(ctx context.Context, table string) ([]types.IndexDefinition, error) {
	rows, err := im.conn.Query(ctx, `
		SELECT indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2
		ORDER BY indexname`, im.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read pg_indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.IndexDefinition
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return nil, fmt.Errorf("failed to scan pg_indexes row: %w", err)
		}
		ix, ok := parseIndexDef(name, def)
		if !ok {
			logger.Warn("skipping index with unsupported definition",
				"table", table, "index", name)
			continue
		}
		indexes = append(indexes, ix)
	}
	return indexes, rows.Err()
}

// parseIndexDef extracts key expressions, INCLUDE columns, and uniqueness
// from a pg_indexes.indexdef string. Partial indexes with predicates more
// complex than col = 'literal' are skipped; the planner would never be
// able to prove them implied anyway.
func parseIndexDef(name, def string) (types.IndexDefinition, bool) {
	ix := types.IndexDefinition{Name: name}
	ix.Unique = strings.HasPrefix(def, "CREATE UNIQUE INDEX")

	open := strings.Index(def, "(")
	if open < 0 {
		return ix, false
	}
	close_ := matchingParen(def, open)
	if close_ < 0 {
		return ix, false
	}
	for _, key := range strings.Split(def[open+1:close_], ",") {
		// Strip opclass/ordering decorations, keep "col" or "func(col)".
		key = strings.TrimSpace(key)
		if i := strings.IndexAny(key, " "); i > 0 && !strings.Contains(key[:i], "(") {
			key = key[:i]
		}
		ix.Keys = append(ix.Keys, strings.Trim(key, "\""))
	}

	rest := def[close_+1:]
	if incl := strings.Index(rest, "INCLUDE ("); incl >= 0 {
		inclOpen := incl + len("INCLUDE (") - 1
		inclClose := matchingParen(rest, inclOpen)
		if inclClose < 0 {
			return ix, false
		}
		for _, col := range strings.Split(rest[inclOpen+1:inclClose], ",") {
			ix.Include = append(ix.Include, strings.Trim(strings.TrimSpace(col), "\""))
		}
		rest = rest[inclClose+1:]
	}

	if where := strings.Index(rest, " WHERE "); where >= 0 {
		terms, ok := parseWhereClause(rest[where+len(" WHERE "):])
		if !ok {
			return ix, false
		}
		ix.Where = terms
	}
	return ix, true
}

// parseWhereClause handles the simple equality conjunctions emitted for
// partial indexes, e.g. ((status)::text = 'Canceled'::text).
func parseWhereClause(clause string) ([]types.IndexPredicateTerm, bool) {
	var terms []types.IndexPredicateTerm
	for _, part := range strings.Split(clause, " AND ") {
		part = strings.Trim(strings.TrimSpace(part), "()")
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, false
		}
		expr := strings.Trim(strings.TrimSpace(part[:eq]), "()\"")
		if i := strings.Index(expr, "::"); i >= 0 {
			expr = strings.Trim(expr[:i], "()\"")
		}
		val := strings.TrimSpace(part[eq+1:])
		if i := strings.Index(val, "::"); i >= 0 {
			val = val[:i]
		}
		val = strings.Trim(val, "'")
		terms = append(terms, types.IndexPredicateTerm{Expr: expr, Op: "=", Value: val})
	}
	return terms, true
}

// mapTypeName folds PostgreSQL type names into the planner's coarse
// column types. Unrecognized types are treated as text so statistics on
// them stay usable for equality estimation.
func mapTypeName(typname string) types.ColumnType {
	switch typname {
	case "int2", "int4", "int8", "float4", "float8", "numeric", "oid":
		return types.ColumnTypeNumeric
	case "bool":
		return types.ColumnTypeBoolean
	case "date", "time", "timetz", "timestamp", "timestamptz", "interval":
		return types.ColumnTypeTimestamp
	case "text", "varchar", "bpchar", "char", "name", "uuid":
		return types.ColumnTypeText
	}
	if strings.HasPrefix(typname, "enum_") {
		return types.ColumnTypeEnum
	}
	return types.ColumnTypeText
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
