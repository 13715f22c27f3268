package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Status is the sync lifecycle state stamped on every record.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusSynced  Status = "synced"
	StatusDeleted Status = "deleted"
)

// Record is the generic persisted unit: an opaque id, the business fields
// declared by the table schema, and the sync metadata maintained by the
// change tracker.
type Record struct {
	ID        string
	Fields    map[string]any
	ChangedAt int64
	Status    Status
}

// Clone returns a deep-enough copy (the field map is copied, values are not).
func (r *Record) Clone() *Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{ID: r.ID, Fields: fields, ChangedAt: r.ChangedAt, Status: r.Status}
}

// String returns a field value as a string, or "" when absent.
func (r *Record) String(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// Number returns a numeric field value, or (0, false) when absent.
func (r *Record) Number(name string) (float64, bool) {
	v, ok := r.Fields[name].(float64)
	return v, ok
}

// Int returns a numeric field truncated to int64, or (0, false) when absent.
func (r *Record) Int(name string) (int64, bool) {
	v, ok := r.Fields[name].(float64)
	return int64(v), ok
}

// Bool returns a boolean field value, false when absent.
func (r *Record) Bool(name string) bool {
	v, _ := r.Fields[name].(bool)
	return v
}

// scanRecords reads every row of a result set into Records, decoding only
// the columns the schema declares. Columns stored on disk but absent from
// the schema are ignored: the tolerant-reader half of additive migrations.
func scanRecords(rows *sql.Rows, t *TableSchema) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []Record
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}

		rec := Record{Fields: make(map[string]any)}
		for i, name := range cols {
			switch name {
			case "id":
				rec.ID = asString(raw[i])
			case "_changed":
				rec.ChangedAt = asInt64(raw[i])
			case "_status":
				rec.Status = Status(asString(raw[i]))
			default:
				c := t.Column(name)
				if c == nil {
					continue // unknown stored column
				}
				if raw[i] == nil {
					continue // optional and unset
				}
				rec.Fields[name] = decodeValue(raw[i], c.Type)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func decodeValue(v any, t ColumnType) any {
	switch t {
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
		return float64(0)
	case TypeBool:
		return asInt64(v) != 0
	default:
		return asString(v)
	}
}

// encodeValue converts a field value to its SQL representation, normalizing
// the handful of Go types callers reasonably pass for each column type.
func encodeValue(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
}

// insertSQL builds the full upsert statement and argument list for a record.
// Unknown field names are rejected at the write boundary; only reads are
// tolerant of schema drift.
func insertSQL(t *TableSchema, rec *Record) (string, []any, error) {
	cols := []string{"id"}
	args := []any{rec.ID}

	for _, c := range t.Columns {
		v, ok := rec.Fields[c.Name]
		if !ok {
			if c.Optional {
				cols = append(cols, c.Name)
				args = append(args, nil)
				continue
			}
			v = c.Default
		}
		enc, err := encodeValue(v, c.Type)
		if err != nil {
			return "", nil, fmt.Errorf("field %s.%s: %w", t.Name, c.Name, err)
		}
		if enc == nil && !c.Optional {
			enc, _ = encodeValue(defaultFor(c), c.Type)
		}
		cols = append(cols, c.Name)
		args = append(args, enc)
	}

	for name := range rec.Fields {
		if t.Column(name) == nil {
			return "", nil, fmt.Errorf("unknown column %s.%s", t.Name, name)
		}
	}

	cols = append(cols, "_changed", "_status")
	args = append(args, rec.ChangedAt, string(rec.Status))

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), placeholders)
	return stmt, args, nil
}

func defaultFor(c Column) any {
	if c.Default != nil {
		return c.Default
	}
	switch c.Type {
	case TypeNumber:
		return float64(0)
	case TypeBool:
		return false
	default:
		return ""
	}
}
