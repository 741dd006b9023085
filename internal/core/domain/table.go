package domain

import "strings"

// System columns added to every table created by spsync. They tag each
// row with the run that produced it, which is the recovery mechanism
// for auditing or cleaning up a partially-written run.
const (
	// ColumnSyncTimestamp records when the row was inserted.
	ColumnSyncTimestamp = "sync_timestamp"

	// ColumnSyncID records the id of the sync run that inserted the row.
	ColumnSyncID = "sync_id"
)

// placeholderColumn is used when cleaning leaves nothing of a field name.
const placeholderColumn = "unnamed_column"

// ColumnType is the declared storage type of a destination column.
type ColumnType int

const (
	// ColumnText is a bounded-length text column, the default.
	ColumnText ColumnType = iota

	// ColumnInteger is an integer column.
	ColumnInteger
)

// ColumnDef is one destination column: cleaned name plus declared type.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// CleanColumnName turns a remote field name into a safe column identifier.
// Rules: '.', ' ' and '-' become '_'; any remaining character outside
// [a-zA-Z0-9_] is stripped; a leading digit gets a "col_" prefix; an empty
// result becomes a fixed placeholder; the result is lower-cased.
//
// The same function must be applied at table-creation time and at write
// time, or the INSERT column list will not match the table.
// It is idempotent: CleanColumnName(CleanColumnName(x)) == CleanColumnName(x).
func CleanColumnName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '.' || r == ' ' || r == '-':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return placeholderColumn
	}
	if cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "col_" + cleaned
	}
	return strings.ToLower(cleaned)
}

// ColumnTypeForValues infers the declared type for a column from the
// values observed in a fetch. Uniformly integral values (nulls ignored)
// map to an integer column. Everything else, including uniform floats,
// maps to text: storing floats as text trades numeric querying on those
// columns for identical rendering across backends.
func ColumnTypeForValues(values []Value) ColumnType {
	sawInt := false
	for _, v := range values {
		switch v.Kind() {
		case KindNull:
			continue
		case KindInt:
			sawInt = true
		default:
			return ColumnText
		}
	}
	if sawInt {
		return ColumnInteger
	}
	return ColumnText
}

// DeriveColumns maps a tabular result's column union to destination
// column definitions with cleaned names. When two field names clean to
// the same identifier, the first wins and later ones are dropped.
// System columns are NOT included; sinks prepend them at creation time.
func DeriveColumns(result *TabularResult) []ColumnDef {
	defs := make([]ColumnDef, 0, len(result.Columns))
	taken := make(map[string]struct{}, len(result.Columns))
	for _, field := range result.Columns {
		name := CleanColumnName(field)
		if _, dup := taken[name]; dup {
			continue
		}
		taken[name] = struct{}{}
		defs = append(defs, ColumnDef{
			Name: name,
			Type: ColumnTypeForValues(result.ColumnValues(field)),
		})
	}
	return defs
}

// RecordValue finds a record's value for a cleaned column name.
// Records key their fields by pre-cleaning names, so the lookup
// cleans each candidate field the same way the table was created.
func RecordValue(rec ListRecord, cleanedColumn string) Value {
	if v, ok := rec[cleanedColumn]; ok {
		return v
	}
	for field, v := range rec {
		if CleanColumnName(field) == cleanedColumn {
			return v
		}
	}
	return Null()
}

// BatchRanges splits total rows into half-open [start, end) batches of
// at most size rows. A non-positive size yields a single batch.
func BatchRanges(total, size int) [][2]int {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		return [][2]int{{0, total}}
	}
	ranges := make([][2]int, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
