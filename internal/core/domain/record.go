package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind identifies the dynamic type of a list field value.
type ValueKind int

const (
	// KindNull is an absent or JSON null value.
	KindNull ValueKind = iota

	// KindBool is a boolean value.
	KindBool

	// KindInt is an integral numeric value.
	KindInt

	// KindFloat is a non-integral numeric value.
	KindFloat

	// KindText is a string value, and the fallback for anything else.
	KindText
)

// Value is a tagged-union scalar carried by a ListRecord.
// Keeping the tag explicit makes column type inference testable
// instead of relying on reflection over map[string]any.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integral Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a string Value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind returns the value's dynamic type tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integral value. Only meaningful for KindInt.
func (v Value) Int64() int64 { return v.i }

// String renders the value for storage in a text column.
// Floats keep Go's shortest round-trip formatting so the stored
// text survives a read-back comparison on any backend.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Arg returns the value as a database driver argument.
// Null maps to nil so NULL columns stay NULL rather than "".
func (v Value) Arg() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.String()
	default:
		return v.s
	}
}

// ValueFromJSON maps a decoded JSON scalar to a Value.
// Numbers must be json.Number (decode with UseNumber) so integral
// and floating-point values stay distinguishable. Non-scalar input
// (arrays, objects that escaped flattening) is stored as its JSON text.
func ValueFromJSON(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Int(i)
			}
		}
		if f, err := t.Float64(); err == nil {
			return Float(f)
		}
		return Text(s)
	case float64:
		// Tolerate decoders that were not switched to UseNumber.
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	default:
		if b, err := json.Marshal(t); err == nil {
			return Text(string(b))
		}
		return Null()
	}
}

// ListRecord is one row of remote list data: field name to scalar value.
// Field names have already had metadata fields dropped and dots replaced
// with underscores by the fetcher.
type ListRecord map[string]Value

// TabularResult is an ordered sequence of records plus the union of all
// field names seen across them. Remote records may carry heterogeneous
// optional fields, so the union is maintained incrementally.
type TabularResult struct {
	Records []ListRecord
	Columns []string

	seen map[string]struct{}
}

// NewTabularResult returns an empty result.
func NewTabularResult() *TabularResult {
	return &TabularResult{seen: make(map[string]struct{})}
}

// Append adds a record and folds its field names into the column union,
// preserving first-seen order.
func (t *TabularResult) Append(rec ListRecord) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
		for _, c := range t.Columns {
			t.seen[c] = struct{}{}
		}
	}
	for name := range rec {
		if _, ok := t.seen[name]; !ok {
			t.seen[name] = struct{}{}
			t.Columns = append(t.Columns, name)
		}
	}
	t.Records = append(t.Records, rec)
}

// Len returns the number of records.
func (t *TabularResult) Len() int { return len(t.Records) }

// Empty reports whether the result holds no records.
// An empty result is a successful no-op, not an error.
func (t *TabularResult) Empty() bool { return len(t.Records) == 0 }

// ColumnValues returns every non-missing value for a column, in record order.
// Used by column type inference.
func (t *TabularResult) ColumnValues(name string) []Value {
	values := make([]Value, 0, len(t.Records))
	for _, rec := range t.Records {
		if v, ok := rec[name]; ok {
			values = append(values, v)
		}
	}
	return values
}
