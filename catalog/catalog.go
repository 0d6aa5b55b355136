package catalog

import (
	"github.com/google/uuid"

	cerrors "github.com/guileen/planlite/catalog/errors"
	"github.com/guileen/planlite/types"
)

// Catalog is the read-only view the planner consumes. Implementations must
// be safe for concurrent use; Snapshot achieves this by being immutable
// after construction.
type Catalog interface {
	// Table returns the definition of the named table. Unknown relations
	// are a fatal planning error (ErrUnknownRelation).
	Table(name string) (*types.TableDefinition, error)

	// StatsFor returns statistics for an expression over a table, when
	// the catalog has collected them. Missing statistics are not an
	// error; the estimator degrades to defaults.
	StatsFor(table string, expr types.Expr) (*ColumnStatistics, bool)

	// IndexesOn returns the indexes available on a table, in declaration
	// order.
	IndexesOn(table string) []types.IndexDefinition
}

// TableEntry is one table in a catalog document: its definition plus the
// statistics collected for it.
type TableEntry struct {
	types.TableDefinition
	Statistics []ColumnStatistics `json:"statistics,omitempty"`
}

// Document is the serializable form of a catalog snapshot. Loaders,
// importers, and the snapshot store all speak this format.
type Document struct {
	Tables []TableEntry `json:"tables"`
}

// Snapshot is an immutable catalog snapshot. Planning calls hold a
// Snapshot for their whole duration; a statistics refresh produces a new
// Snapshot and never mutates an existing one, so no locking is needed.
type Snapshot struct {
	id     uuid.UUID
	tables map[string]*types.TableDefinition
	order  []string
	stats  map[string]map[string]*ColumnStatistics // table -> expr key -> stats
}

// NewSnapshot builds an immutable snapshot from a document.
func NewSnapshot(doc *Document) (*Snapshot, error) {
	s := &Snapshot{
		id:     uuid.New(),
		tables: make(map[string]*types.TableDefinition, len(doc.Tables)),
		stats:  make(map[string]map[string]*ColumnStatistics, len(doc.Tables)),
	}
	for i := range doc.Tables {
		entry := &doc.Tables[i]
		for _, col := range entry.Columns {
			if !types.IsValidColumnType(col.Type) {
				return nil, cerrors.ErrInvalidColumnType.WithDetail("%s.%s has type %q", entry.Name, col.Name, col.Type)
			}
		}
		def := entry.TableDefinition
		s.tables[entry.Name] = &def
		s.order = append(s.order, entry.Name)

		byExpr := make(map[string]*ColumnStatistics, len(entry.Statistics))
		for j := range entry.Statistics {
			st := entry.Statistics[j]
			byExpr[st.Expr] = &st
		}
		s.stats[entry.Name] = byExpr
	}
	return s, nil
}

// ID returns the snapshot identity. Two planning calls against the same ID
// see exactly the same catalog contents.
func (s *Snapshot) ID() uuid.UUID {
	return s.id
}

// Tables returns the table names in document order.
func (s *Snapshot) Tables() []string {
	return s.order
}

// Table implements Catalog.
func (s *Snapshot) Table(name string) (*types.TableDefinition, error) {
	def, ok := s.tables[name]
	if !ok {
		return nil, cerrors.ErrUnknownRelation.WithDetail("%q", name)
	}
	return def, nil
}

// StatsFor implements Catalog.
func (s *Snapshot) StatsFor(table string, expr types.Expr) (*ColumnStatistics, bool) {
	byExpr, ok := s.stats[table]
	if !ok {
		return nil, false
	}
	st, ok := byExpr[expr.Key()]
	return st, ok
}

// IndexesOn implements Catalog.
func (s *Snapshot) IndexesOn(table string) []types.IndexDefinition {
	def, ok := s.tables[table]
	if !ok {
		return nil
	}
	return def.Indexes
}
