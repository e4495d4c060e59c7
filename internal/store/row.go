package store

import (
	"strconv"
	"strings"
	"time"
)

// Row one result row keyed by lower-cased column name.
// Accessors tolerate the value types different drivers hand back
// (MySQL []byte, SQLite int64 for booleans, string timestamps).
type Row map[string]interface{}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Has reports whether the column is present and non-NULL
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// String returns the column as a string; NULL becomes ""
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// NullString returns nil for NULL, otherwise a pointer to the value
func (r Row) NullString(col string) *string {
	if !r.Has(col) {
		return nil
	}
	s := r.String(col)
	return &s
}

// Int64 returns the column as an integer; unparsable values become 0
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	}
	return 0
}

// Bool returns the column as a boolean (1/0, true/false)
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	default:
		return r.Int64(col) != 0
	}
}

func parseBool(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n != 0
}

// Time returns the column as a timestamp; NULL or unparsable values return nil
func (r Row) Time(col string) *time.Time {
	var s string
	switch v := r[col].(type) {
	case nil:
		return nil
	case time.Time:
		t := v.UTC()
		return &t
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
