package types

// ColumnType represents the data type tag of a table column. The planner
// only needs enough typing to drive range interpolation and LIKE prefix
// handling, so the tag set is deliberately coarse.
type ColumnType string

const (
	ColumnTypeNumeric   ColumnType = "numeric"
	ColumnTypeText      ColumnType = "text"
	ColumnTypeTimestamp ColumnType = "timestamp"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeEnum      ColumnType = "enum"
)

// IsValidColumnType checks if a column type tag is valid
func IsValidColumnType(typ ColumnType) bool {
	switch typ {
	case ColumnTypeNumeric, ColumnTypeText, ColumnTypeTimestamp,
		ColumnTypeBoolean, ColumnTypeEnum:
		return true
	default:
		return false
	}
}
